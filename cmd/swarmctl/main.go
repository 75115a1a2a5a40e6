// Command swarmctl is a scriptable client over the gateway's HTTP API:
// create, list, and control agents, and open sessions, without the
// interactive TUI original_source's aura-swarm-cli crate provides.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "swarmctl",
	Short: "Control client for the agent swarm platform",
}

func init() {
	rootCmd.PersistentFlags().String("gateway", "http://localhost:8080", "gateway base URL")
	rootCmd.PersistentFlags().String("token", "", "bearer token for the gateway (or set SWARM_TOKEN)")

	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(sessionCmd)
}

func clientFromFlags(cmd *cobra.Command) *client {
	gateway, _ := cmd.Flags().GetString("gateway")
	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		token = os.Getenv("SWARM_TOKEN")
	}
	return newClient(gateway, token)
}

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Manage agents",
}

var agentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your agents",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := clientFromFlags(cmd)
		agents, err := c.listAgents()
		if err != nil {
			return err
		}
		if len(agents) == 0 {
			fmt.Println("No agents found")
			return nil
		}
		fmt.Printf("%-16s %-20s %-12s %s\n", "AGENT ID", "NAME", "STATUS", "RUNTIME")
		for _, a := range agents {
			fmt.Printf("%-16s %-20s %-12s %s\n", a.AgentID[:16], a.Name, a.Status, a.Spec.RuntimeVersion)
		}
		return nil
	},
}

var agentCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a new agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cpu, _ := cmd.Flags().GetUint32("cpu-millicores")
		mem, _ := cmd.Flags().GetUint32("memory-mb")
		c := clientFromFlags(cmd)
		agent, err := c.createAgent(args[0], cpu, mem)
		if err != nil {
			return err
		}
		fmt.Printf("Agent created: %s (%s)\n", agent.AgentID, agent.Status)
		return nil
	},
}

var agentGetCmd = &cobra.Command{
	Use:   "get AGENT_ID",
	Short: "Show one agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := clientFromFlags(cmd)
		agent, err := c.getAgent(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Agent: %s\n", agent.Name)
		fmt.Printf("  ID:      %s\n", agent.AgentID)
		fmt.Printf("  Status:  %s\n", agent.Status)
		fmt.Printf("  CPU:     %d millicores\n", agent.Spec.CPUMillicores)
		fmt.Printf("  Memory:  %d MB\n", agent.Spec.MemoryMB)
		fmt.Printf("  Runtime: %s\n", agent.Spec.RuntimeVersion)
		return nil
	},
}

var agentDeleteCmd = &cobra.Command{
	Use:   "delete AGENT_ID",
	Short: "Delete an agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := clientFromFlags(cmd)
		if err := c.deleteAgent(args[0]); err != nil {
			return err
		}
		fmt.Printf("Agent deleted: %s\n", args[0])
		return nil
	},
}

func agentActionCmd(use, short, action string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " AGENT_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := clientFromFlags(cmd)
			agent, err := c.agentAction(args[0], action)
			if err != nil {
				return err
			}
			fmt.Printf("Agent %s: %s\n", action, agent.Status)
			return nil
		},
	}
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage sessions",
}

var sessionCreateCmd = &cobra.Command{
	Use:   "create AGENT_ID",
	Short: "Open a new session against an agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := clientFromFlags(cmd)
		session, err := c.createSession(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Session opened: %s\n", session.SessionID)
		fmt.Printf("  Agent: %s\n", session.AgentID)
		fmt.Printf("  Status: %s\n", session.Status)
		return nil
	},
}

func init() {
	agentCmd.AddCommand(agentListCmd, agentCreateCmd, agentGetCmd, agentDeleteCmd,
		agentActionCmd("start", "Start an agent", "start"),
		agentActionCmd("stop", "Stop an agent", "stop"),
		agentActionCmd("restart", "Restart an agent", "restart"),
		agentActionCmd("hibernate", "Hibernate an agent", "hibernate"),
		agentActionCmd("wake", "Wake a hibernating agent", "wake"),
	)
	agentCreateCmd.Flags().Uint32("cpu-millicores", 0, "CPU request in millicores (defaults to the platform default)")
	agentCreateCmd.Flags().Uint32("memory-mb", 0, "memory request in MB (defaults to the platform default)")

	sessionCmd.AddCommand(sessionCreateCmd)
}
