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

	"github.com/nabbar-ring/ringnode/internal/rerr"
)

var fullClassCMask = net.CIDRMask(24, 32).String()

// addrLister is the subset of net.Interface's method set discoverBindIP
// needs, narrowed so pickBindIP can be exercised against fakes in
// tests without binding real sockets.
type addrLister interface {
	Addrs() ([]net.Addr, error)
}

// discoverBindIP scans the host's network interfaces for an IPv4
// address with a 255.255.255.0 netmask, spec.md §6's bind-address
// discovery rule.
func discoverBindIP() (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", rerr.ArgumentError.Errorf("enumerating network interfaces: %v", err)
	}

	listers := make([]addrLister, len(ifaces))
	for i := range ifaces {
		listers[i] = &ifaces[i]
	}
	return pickBindIP(listers)
}

func pickBindIP(ifaces []addrLister) (string, error) {
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipNet.IP.To4()
			if ip4 == nil {
				continue
			}
			if ipNet.Mask.String() != fullClassCMask {
				continue
			}
			return ip4.String(), nil
		}
	}
	return "", rerr.ArgumentError.Errorf("no IPv4 interface with netmask 255.255.255.0 found")
}
