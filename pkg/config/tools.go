// Copyright 2025 Mentor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"net/url"
	"time"
)

// ToolsConfig configures the tool host.
type ToolsConfig struct {
	// CallTimeout bounds one tool invocation; parallel calls each get
	// their own deadline. Default: 120s
	CallTimeout time.Duration `yaml:"call_timeout,omitempty"`

	// Disabled lists tool names to withhold from registration.
	Disabled []string `yaml:"disabled,omitempty"`
}

// SetDefaults applies default values to ToolsConfig.
func (c *ToolsConfig) SetDefaults() {
	if c.CallTimeout == 0 {
		c.CallTimeout = 120 * time.Second
	}
}

// Validate checks the tools configuration.
func (c *ToolsConfig) Validate() error {
	if c.CallTimeout < 0 {
		return fmt.Errorf("call_timeout cannot be negative")
	}
	return nil
}

// IsDisabled reports whether a tool name is withheld from registration.
func (c *ToolsConfig) IsDisabled(name string) bool {
	return containsString(c.Disabled, name)
}

// PortalConfig configures the student-portal client backing the
// get_grades and get_schedule tools. Leaving base_url empty disables
// those tools.
type PortalConfig struct {
	// BaseURL of the portal API.
	BaseURL string `yaml:"base_url,omitempty"`

	// Cookie is the session cookie sent with every request.
	// Supports ${VAR} expansion.
	Cookie string `yaml:"cookie,omitempty"`

	// Timeout bounds one portal request. Default: 30s
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// SetDefaults applies default values to PortalConfig.
func (c *PortalConfig) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

// Validate checks the portal configuration.
func (c *PortalConfig) Validate() error {
	if c.BaseURL != "" {
		if _, err := url.Parse(c.BaseURL); err != nil {
			return fmt.Errorf("invalid base_url: %w", err)
		}
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	return nil
}

// IsEnabled reports whether the portal client is configured.
func (c *PortalConfig) IsEnabled() bool {
	return c.BaseURL != ""
}
