package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"xdao.co/facetreg/artifact"
	"xdao.co/facetreg/iface"
	"xdao.co/facetreg/manifest"
	"xdao.co/facetreg/manifest/backends"
	"xdao.co/facetreg/registry"
	"xdao.co/facetreg/roles"
	"xdao.co/facetreg/selector"
)

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt)
}

func (a *app) selectorCmd() *cobra.Command {
	var module string
	cmd := &cobra.Command{
		Use:   "selector [signature...]",
		Short: "Print the 4-byte selector of each signature, or of every function in --module",
		RunE: func(cmd *cobra.Command, args []string) error {
			if module != "" {
				m, err := artifact.Dir{Root: a.cfg.ArtifactsDir}.Load(cmd.Context(), module)
				if err != nil {
					return err
				}
				entries, err := iface.Selectors(m.Declarations)
				if err != nil {
					return err
				}
				for _, e := range entries {
					fmt.Fprintf(a.out, "%s\t%s\n", e.Selector.Hex(), e.Signature)
				}
				return nil
			}
			if len(args) == 0 {
				return fmt.Errorf("give at least one signature or --module")
			}
			for _, sig := range args {
				sel, err := selector.FromSignature(sig)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s\t%s\n", sel.Hex(), sig)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&module, "module", "", "Module name in the artifacts directory")
	return cmd
}

func (a *app) roleIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "role-id <label>...",
		Short: "Print the 32-byte identifier of each role label",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			for _, label := range args {
				id, err := roles.ID(label)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s\t%s\n", id.Hex(), label)
			}
			return nil
		},
	}
}

func (a *app) rolesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roles",
		Short: "Show the role menu table",
		RunE: func(*cobra.Command, []string) error {
			if a.cfg.RolesFile == "" {
				return fmt.Errorf("no role table configured (FACETREG_ROLES_FILE or --roles-file)")
			}
			tbl, err := roles.LoadTable(a.cfg.RolesFile)
			if err != nil {
				return err
			}
			cell := roles.NewCell(tbl)
			cur, version := cell.Load()
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "# table version %d\n", version)
			for _, label := range cur.Labels() {
				cats, _ := cur.Categories(label)
				for _, c := range cats {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", label, roles.MustID(label).Hex(), c.Name, strings.Join(c.Items, ","))
				}
			}
			return tw.Flush()
		},
	}
}

func (a *app) upgradeCmd() *cobra.Command {
	var ctorHex string
	cmd := &cobra.Command{
		Use:   "upgrade <module>",
		Short: "Deploy a module, bind its selectors and record the manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()

			ctorArgs, err := decodeHex(ctorHex)
			if err != nil {
				return fmt.Errorf("--ctor-args: %w", err)
			}
			up, release, err := a.upgrader(ctx)
			if err != nil {
				return err
			}
			defer release()

			res, err := up.Run(ctx, args[0], ctorArgs)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s deployed at %s; %d selectors bound; interface %s\n",
				res.Module.Name, res.Module.Address.Hex(), len(res.Selectors), res.Manifest.InterfaceCID)
			return nil
		},
	}
	cmd.Flags().StringVar(&ctorHex, "ctor-args", "", "ABI-encoded constructor arguments (hex)")
	return cmd
}

func (a *app) recoverCmd() *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "recover <module>",
		Short: "Re-record the manifest for a module already bound on the proxy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()
			if !common.IsHexAddress(address) {
				return fmt.Errorf("--address must be the module's deployed address")
			}
			up, release, err := a.upgrader(ctx)
			if err != nil {
				return err
			}
			defer release()

			res, err := up.Recover(ctx, args[0], common.HexToAddress(address))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s recorded at %s; interface %s\n", res.Module.Name, res.Module.Address.Hex(), res.Manifest.InterfaceCID)
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "Deployed module address")
	return cmd
}

func (a *app) verifyCmd() *cobra.Command {
	var onChain bool
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the manifest for a half-applied write, and optionally against the proxy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()
			store, closeStore, err := a.openManifest()
			if err != nil {
				return err
			}
			defer closeStore()

			if err := manifest.Check(ctx, store); err != nil {
				return err
			}
			addrs, _, err := manifest.Load(ctx, store)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "manifest consistent: %d modules, interface %s\n", len(addrs.Modules), addrs.InterfaceCID)
			if !onChain {
				return nil
			}

			l, closeLedger, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer closeLedger()
			p, err := a.proxy(l)
			if err != nil {
				return err
			}
			u := &registry.Updater{Proxy: p, Caller: l.From(), Logger: a.logger.Named("registry")}
			for _, name := range addrs.Names() {
				rec := addrs.Modules[name]
				if err := u.Verify(ctx, registry.Binding{Facet: rec.Address, Selectors: rec.Selectors}); err != nil {
					fmt.Fprintf(a.out, "%s: %v\n", name, err)
					continue
				}
				fmt.Fprintf(a.out, "%s: %d selectors routed to %s\n", name, len(rec.Selectors), rec.Address.Hex())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&onChain, "onchain", false, "Also resolve every recorded selector on the proxy")
	return cmd
}

func (a *app) resolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <selector|signature>",
		Short: "Find the recorded module serving a selector",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := parseSelector(args[0])
			if err != nil {
				return err
			}
			store, closeStore, err := a.openManifest()
			if err != nil {
				return err
			}
			defer closeStore()
			addrs, _, err := manifest.Load(cmd.Context(), store)
			if err != nil {
				return err
			}
			name, ok := addrs.Owner(sel)
			if !ok {
				return fmt.Errorf("selector %s is not recorded", sel.Hex())
			}
			fmt.Fprintf(a.out, "%s\t%s\t%s\n", sel.Hex(), name, addrs.Modules[name].Address.Hex())
			return nil
		},
	}
}

func (a *app) grantRoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grant-role <label> <account>",
		Short: "Grant a role on the proxy's access-control facet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !common.IsHexAddress(args[1]) {
				return fmt.Errorf("invalid account %q", args[1])
			}
			ctx, cancel := signalContext(cmd)
			defer cancel()
			g, release, err := a.granter(ctx)
			if err != nil {
				return err
			}
			defer release()
			if err := g.Grant(ctx, args[0], common.HexToAddress(args[1])); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "granted %s to %s\n", args[0], args[1])
			return nil
		},
	}
}

func (a *app) hasRoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "has-role <label> <account>",
		Short: "Report whether an account holds a role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !common.IsHexAddress(args[1]) {
				return fmt.Errorf("invalid account %q", args[1])
			}
			ctx, cancel := signalContext(cmd)
			defer cancel()
			g, release, err := a.granter(ctx)
			if err != nil {
				return err
			}
			defer release()
			ok, err := g.HasRole(ctx, args[0], common.HexToAddress(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, ok)
			return nil
		},
	}
}

func (a *app) granter(ctx context.Context) (*roles.Granter, func(), error) {
	l, closeLedger, err := a.openLedger(ctx)
	if err != nil {
		return nil, nil, err
	}
	addr, err := a.cfg.DiamondAddress()
	if err != nil {
		closeLedger()
		return nil, nil, err
	}
	return &roles.Granter{Ledger: l, Proxy: addr, Logger: a.logger.Named("roles")}, closeLedger, nil
}

func (a *app) backendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List manifest backends",
		RunE: func(*cobra.Command, []string) error {
			for _, b := range backends.List() {
				fmt.Fprintf(a.out, "%s\t%s\n", b.Name, b.Description)
			}
			return nil
		},
	}
}

func parseSelector(s string) (selector.Selector, error) {
	if strings.Contains(s, "(") {
		return selector.FromSignature(s)
	}
	return selector.ParseHex(s)
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if s == "" {
		return nil, nil
	}
	return hex.DecodeString(s)
}
