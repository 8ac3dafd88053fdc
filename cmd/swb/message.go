package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/switchboard/internal/messaging"
)

func newMessageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "message",
		Short: "Messaging commands",
	}

	cmd.AddCommand(newMessageSendCmd())
	cmd.AddCommand(newMessageInboxCmd())
	cmd.AddCommand(newMessageMarkReadCmd())
	return cmd
}

func newMessageSendCmd() *cobra.Command {
	var (
		configPath     string
		from           string
		to             []string
		content        string
		conversationID string
		importance     int
		scheduleAt     string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a message to one or more agents",
		Long:  "Records a message from one agent and fans it out to each recipient. With --schedule-at the message stays hidden from pulls until the given time.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			in := messaging.MessageCreate{
				SenderID: &from,
				Content:  content,
			}
			if cmd.Flags().Changed("conversation") {
				in.ConversationID = &conversationID
			}
			if cmd.Flags().Changed("importance") {
				in.Importance = &importance
			}
			if scheduleAt != "" {
				at, err := time.Parse(time.RFC3339, scheduleAt)
				if err != nil {
					return fmt.Errorf("invalid --schedule-at (want RFC3339): %w", err)
				}
				in.ScheduleAt = &at
			}

			msg, err := messaging.CreateMessage(gormDB, in)
			if err != nil {
				return err
			}
			for _, recipient := range to {
				if _, err := messaging.CreateRecipient(gormDB, msg.ID, recipient); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if in.ScheduleAt != nil {
				fmt.Fprintf(out, "Scheduled message %s for %s (%d recipient(s))\n",
					msg.ID, in.ScheduleAt.Format(time.RFC3339), len(to))
			} else {
				fmt.Fprintf(out, "Sent message %s to %d recipient(s)\n", msg.ID, len(to))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	cmd.Flags().StringVar(&from, "from", "", "sender agent ID (required)")
	cmd.Flags().StringSliceVar(&to, "to", nil, "recipient agent ID (repeatable, required)")
	cmd.Flags().StringVar(&content, "content", "", "message body (required)")
	cmd.Flags().StringVar(&conversationID, "conversation", "", "conversation ID to attach to")
	cmd.Flags().IntVar(&importance, "importance", 0, "importance level (0-10)")
	cmd.Flags().StringVar(&scheduleAt, "schedule-at", "", "RFC3339 time to release the message")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	cmd.MarkFlagRequired("content")
	return cmd
}

func newMessageInboxCmd() *cobra.Command {
	var (
		configPath string
		agent      string
		unreadOnly bool
	)

	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "View an agent's messages",
		Long:  "Lists messages the agent sent or received, newest first. With --unread, only unreceived-yet messages.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			list := messaging.ListForAgent
			if unreadOnly {
				list = messaging.ListUnreadForAgent
			}
			msgs, err := list(gormDB, agent)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(msgs) == 0 {
				fmt.Fprintf(out, "No messages for %s\n", agent)
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tFROM\tCONTENT\tIMPORTANCE\tSENT")
			for _, m := range msgs {
				importance := "-"
				if m.Importance != nil {
					importance = fmt.Sprintf("%d", *m.Importance)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					m.ID, orDash(m.SenderID), truncate(m.Content, 48), importance,
					m.SentAt.Format("2006-01-02 15:04"))
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	cmd.Flags().StringVar(&agent, "agent", "", "agent ID (required)")
	cmd.Flags().BoolVar(&unreadOnly, "unread", false, "only unread messages")
	cmd.MarkFlagRequired("agent")
	return cmd
}

func newMessageMarkReadCmd() *cobra.Command {
	var (
		configPath string
		agent      string
		upTo       string
	)

	cmd := &cobra.Command{
		Use:   "mark-read",
		Short: "Mark an agent's messages as read",
		Long:  "Marks every unread message the agent received, sent at or before the cutoff, as read. Defaults to now.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			cutoff := time.Now()
			if upTo != "" {
				cutoff, err = time.Parse(time.RFC3339, upTo)
				if err != nil {
					return fmt.Errorf("invalid --up-to (want RFC3339): %w", err)
				}
			}

			updated, err := messaging.MarkRead(gormDB, agent, cutoff)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %d message(s) as read\n", updated)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	cmd.Flags().StringVar(&agent, "agent", "", "agent ID (required)")
	cmd.Flags().StringVar(&upTo, "up-to", "", "RFC3339 cutoff (default: now)")
	cmd.MarkFlagRequired("agent")
	return cmd
}
