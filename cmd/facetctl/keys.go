package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"xdao.co/facetreg/keys"
)

func (a *app) keyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage local signer keys",
	}

	var force bool
	var keyHex string
	initCmd := &cobra.Command{
		Use:   "init <name>",
		Short: "Create (or import with --hex) a root key",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ks, err := keys.CreateKeyStore(a.cfg.KeyDir)
			if err != nil {
				return err
			}
			if keyHex != "" {
				key, err := keys.ParseKeyHex(keyHex)
				if err != nil {
					return err
				}
				path, err := ks.Import(args[0], key, force)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s\t%s\n", keys.AddressOf(key).Hex(), path)
				return nil
			}
			key, path, err := ks.Generate(args[0], force)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s\t%s\n", keys.AddressOf(key).Hex(), path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing key")
	initCmd.Flags().StringVar(&keyHex, "hex", "", "Import this private key instead of generating one")

	var deriveForce bool
	deriveCmd := &cobra.Command{
		Use:   "derive <name> <role>",
		Short: "Derive a role key from a root key",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			ks, err := keys.CreateKeyStore(a.cfg.KeyDir)
			if err != nil {
				return err
			}
			key, path, err := ks.DeriveRole(args[0], args[1], deriveForce)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s\t%s\n", keys.AddressOf(key).Hex(), path)
			return nil
		},
	}
	deriveCmd.Flags().BoolVar(&deriveForce, "force", false, "Overwrite an existing role key")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored keys",
		RunE: func(*cobra.Command, []string) error {
			ks, err := keys.CreateKeyStore(a.cfg.KeyDir)
			if err != nil {
				return err
			}
			entries, err := ks.List()
			if err != nil {
				return err
			}
			for _, e := range entries {
				key, err := ks.Load("", e.Name, "", "")
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s\t%s\t%s\n", e.Name, keys.AddressOf(key).Hex(), strings.Join(e.Roles, ","))
			}
			return nil
		},
	}

	cmd.AddCommand(initCmd, deriveCmd, listCmd)
	return cmd
}
