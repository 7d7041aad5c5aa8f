package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"transcoder/internal/config"
	"transcoder/internal/daemonctl"
)

type commandContext struct {
	configFlag *string
	apiFlag    *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, apiFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		apiFlag:    apiFlag,
	}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) client() (*daemonctl.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	var opts []daemonctl.ClientOption
	if c.apiFlag != nil && strings.TrimSpace(*c.apiFlag) != "" {
		opts = append(opts, daemonctl.WithBaseURL(*c.apiFlag))
	}
	client, err := daemonctl.NewClient(cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("daemon client: %w (pass --api to set the address)", err)
	}
	return client, nil
}

func wrapDaemonError(err error) error {
	if daemonctl.IsUnavailable(err) {
		return fmt.Errorf("connect to daemon: %w; start it with `transcoder serve`", err)
	}
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
