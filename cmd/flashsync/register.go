package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRegisterCmd registers this device with the configured sync target
// (a remote flashsyncd, or the local-only store) and caches the issued
// device identity.
func NewRegisterCmd(getApp func() (*App, error)) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register this device and cache its sync credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp()
			if err != nil {
				return err
			}
			defer app.Close()

			if name == "" {
				hostname, err := os.Hostname()
				if err != nil {
					hostname = "flashsync-device"
				}
				name = hostname
			}

			identity, err := app.Client.Register(context.Background(), name)
			if err != nil {
				return fmt.Errorf("failed to register device: %w", err)
			}
			if err := app.LocalStore.SaveLocalDevice(identity); err != nil {
				return fmt.Errorf("failed to cache device identity: %w", err)
			}

			fmt.Printf("Registered device %q (id: %s)\n", name, identity.DeviceID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "device name (defaults to hostname)")
	return cmd
}
