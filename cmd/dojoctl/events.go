package main

import (
	"errors"

	"github.com/Shivanand-hulikatti/dojo-admin/internal/model"
	"github.com/Shivanand-hulikatti/dojo-admin/internal/workflow"
	"github.com/spf13/cobra"
)

func eventsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List, show, create and delete events",
	}
	cmd.AddCommand(eventsListCmd(a), eventsShowCmd(a), eventsCreateCmd(a), eventsDeleteCmd(a))
	return cmd
}

func eventsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List events with their availability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list := workflow.NewEventList(a.api, a.note, a.opts...)
			if err := list.Load(cmd.Context()); err != nil {
				return err
			}
			return printEvents(a.out, list.Items())
		},
	}
}

func eventsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show EVENT_ID",
		Short: "Show an event and its participants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page := workflow.NewEventPage(a.api, a.api, a.note, a.note, a.opts...)
			if err := page.Load(cmd.Context(), args[0]); err != nil {
				return err
			}
			e, _ := page.Event()
			printEvent(a.out, e, page.Gate())
			return printRows(a.out, page.Roster.Rows())
		},
	}
}

func eventsCreateCmd(a *app) *cobra.Command {
	var d model.EventDraft

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			form := workflow.NewEventForm(a.api, a.sess, a.note, a.note, a.opts...)
			e, err := form.Submit(cmd.Context(), d)
			var fe workflow.FieldErrors
			if errors.As(err, &fe) {
				printFieldErrors(cmd.ErrOrStderr(), fe)
			}
			if err != nil {
				return err
			}
			printEvent(a.out, *e, workflow.GateFor(*e))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&d.Name, "name", "", "Event name")
	f.StringVar(&d.Bio, "bio", "", "Event description")
	f.StringVar(&d.ParticipantNbr, "participants", "", "Number of available slots")
	f.StringVar(&d.Prix, "price", "", "Ticket price")
	f.StringVar(&d.StartDate, "start", "", "Start, e.g. 2026-11-01T18:00")
	f.StringVar(&d.EndDate, "end", "", "End, e.g. 2026-11-01T21:00")
	return cmd
}

func eventsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete EVENT_ID",
		Short: "Delete an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page := workflow.NewEventPage(a.api, a.api, a.note, a.note, a.opts...)
			if err := page.LoadEvent(cmd.Context(), args[0]); err != nil {
				return err
			}
			return page.Delete(cmd.Context())
		},
	}
}
