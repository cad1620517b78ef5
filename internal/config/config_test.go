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

package config_test

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nabbar-ring/ringnode/internal/config"
)

func TestLoadWithNoFlagsMatchesSpecDefaults(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	v := viper.New()

	if err := config.RegisterFlags(cmd, v); err != nil {
		t.Fatal(err)
	}

	opts := config.Load(v)
	if opts.KSucc != config.DefaultKSucc {
		t.Fatalf("expected default KSucc %d, got %d", config.DefaultKSucc, opts.KSucc)
	}
	if opts.NumOwners != config.DefaultNumOwners {
		t.Fatalf("expected default NumOwners %d, got %d", config.DefaultNumOwners, opts.NumOwners)
	}
	if opts.TCPPortOffset != config.DefaultTCPPortOffset {
		t.Fatalf("expected default TCP port offset %d, got %d", config.DefaultTCPPortOffset, opts.TCPPortOffset)
	}
}

func TestFlagOverridesDefault(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	v := viper.New()

	if err := config.RegisterFlags(cmd, v); err != nil {
		t.Fatal(err)
	}
	if err := cmd.PersistentFlags().Set("k-succ", "7"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.PersistentFlags().Set("heartbeat-interval", "500ms"); err != nil {
		t.Fatal(err)
	}

	opts := config.Load(v)
	if opts.KSucc != 7 {
		t.Fatalf("expected overridden KSucc 7, got %d", opts.KSucc)
	}
	if opts.HeartbeatInterval != 500*time.Millisecond {
		t.Fatalf("expected overridden heartbeat interval, got %v", opts.HeartbeatInterval)
	}
}
