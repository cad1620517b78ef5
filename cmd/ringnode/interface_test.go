/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package main

import (
	"net"
	"testing"
)

type fakeIface struct {
	addrs []net.Addr
	err   error
}

func (f fakeIface) Addrs() ([]net.Addr, error) { return f.addrs, f.err }

// ifaceAddr builds a *net.IPNet the way net.Interface.Addrs() actually
// does: IP is the interface's own host address (unmasked), unlike
// net.ParseCIDR's network-address result.
func ifaceAddr(t *testing.T, ip string, prefixLen int) *net.IPNet {
	t.Helper()
	parsed := net.ParseIP(ip)
	if parsed == nil {
		t.Fatalf("invalid test IP %q", ip)
	}
	return &net.IPNet{IP: parsed, Mask: net.CIDRMask(prefixLen, 32)}
}

func TestPickBindIPSkipsNonClassCAndLoopback(t *testing.T) {
	ifaces := []addrLister{
		fakeIface{addrs: []net.Addr{ifaceAddr(t, "127.0.0.1", 8)}},
		fakeIface{addrs: []net.Addr{ifaceAddr(t, "10.0.0.5", 16)}},
		fakeIface{addrs: []net.Addr{ifaceAddr(t, "192.168.1.42", 24)}},
	}

	ip, err := pickBindIP(ifaces)
	if err != nil {
		t.Fatal(err)
	}
	if ip != "192.168.1.42" {
		t.Fatalf("expected the /24 interface's address, got %q", ip)
	}
}

func TestPickBindIPReturnsErrorWhenNoneMatch(t *testing.T) {
	ifaces := []addrLister{
		fakeIface{addrs: []net.Addr{ifaceAddr(t, "127.0.0.1", 8)}},
		fakeIface{addrs: []net.Addr{ifaceAddr(t, "10.0.0.5", 16)}},
	}

	if _, err := pickBindIP(ifaces); err == nil {
		t.Fatal("expected an error when no /24 IPv4 interface is present")
	}
}

func TestPickBindIPSkipsInterfaceThatErrorsOnAddrs(t *testing.T) {
	ifaces := []addrLister{
		fakeIface{err: net.UnknownNetworkError("boom")},
		fakeIface{addrs: []net.Addr{ifaceAddr(t, "172.16.0.9", 24)}},
	}

	ip, err := pickBindIP(ifaces)
	if err != nil {
		t.Fatal(err)
	}
	if ip != "172.16.0.9" {
		t.Fatalf("expected the second interface's address, got %q", ip)
	}
}
