package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/switchboard/internal/registry"
)

func newAgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Agent roster commands",
	}

	cmd.AddCommand(newAgentRegisterCmd())
	cmd.AddCommand(newAgentListCmd())
	cmd.AddCommand(newAgentShowCmd())
	cmd.AddCommand(newAgentUpdateCmd())
	return cmd
}

func newAgentRegisterCmd() *cobra.Command {
	var (
		configPath string
		name       string
		ipAddress  string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			in := registry.AgentCreate{AgentName: name}
			if cmd.Flags().Changed("ip") {
				in.IPAddress = &ipAddress
			}
			if cmd.Flags().Changed("port") {
				in.Port = &port
			}

			agent, err := registry.CreateAgent(gormDB, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered agent %s (%s)\n", agent.AgentName, agent.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	cmd.Flags().StringVar(&name, "name", "", "agent name (required)")
	cmd.Flags().StringVar(&ipAddress, "ip", "", "agent IP address")
	cmd.Flags().IntVar(&port, "port", 0, "agent port (1-65535)")
	cmd.MarkFlagRequired("name")
	return cmd
}

func newAgentListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			agents, err := registry.ListAgents(gormDB)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(agents) == 0 {
				fmt.Fprintln(out, "No agents registered")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tADDRESS\tREGISTERED")
			for _, a := range agents {
				addr := orDash(a.IPAddress)
				if a.Port != nil {
					addr = fmt.Sprintf("%s:%d", addr, *a.Port)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					a.ID, a.AgentName, addr, a.CreatedAt.Format("2006-01-02 15:04"))
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	return cmd
}

func newAgentShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <agent-id>",
		Short: "Show one agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			agent, err := registry.GetAgent(gormDB, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:         %s\n", agent.ID)
			fmt.Fprintf(out, "Name:       %s\n", agent.AgentName)
			fmt.Fprintf(out, "IP:         %s\n", orDash(agent.IPAddress))
			if agent.Port != nil {
				fmt.Fprintf(out, "Port:       %d\n", *agent.Port)
			} else {
				fmt.Fprintln(out, "Port:       -")
			}
			fmt.Fprintf(out, "Registered: %s\n", agent.CreatedAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	return cmd
}

func newAgentUpdateCmd() *cobra.Command {
	var (
		configPath string
		name       string
		ipAddress  string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "update <agent-id>",
		Short: "Update an agent's fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			var upd registry.AgentUpdate
			if cmd.Flags().Changed("name") {
				upd.AgentName = &name
			}
			if cmd.Flags().Changed("ip") {
				upd.IPAddress = &ipAddress
			}
			if cmd.Flags().Changed("port") {
				upd.Port = &port
			}

			agent, err := registry.UpdateAgent(gormDB, args[0], upd)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated agent %s\n", agent.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	cmd.Flags().StringVar(&name, "name", "", "new agent name")
	cmd.Flags().StringVar(&ipAddress, "ip", "", "new IP address")
	cmd.Flags().IntVar(&port, "port", 0, "new port (1-65535)")
	return cmd
}
