package main

import (
	"errors"

	"github.com/Shivanand-hulikatti/dojo-admin/internal/model"
	"github.com/Shivanand-hulikatti/dojo-admin/internal/workflow"
	"github.com/spf13/cobra"
)

func participantsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "participants",
		Aliases: []string{"p"},
		Short:   "Manage the participants of an event",
	}
	cmd.AddCommand(
		participantsListCmd(a),
		participantsRegisterCmd(a),
		participantsRemoveCmd(a),
		participantsExportCmd(a),
	)
	return cmd
}

func participantsListCmd(a *app) *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "list EVENT_ID",
		Short: "List the participants of an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roster := workflow.NewRoster(a.api, a.note, a.opts...)
			if err := roster.Load(cmd.Context(), args[0]); err != nil {
				return err
			}
			return printRows(a.out, workflow.RowsFor(roster.Search(query)))
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Filter by name, email or phone")
	return cmd
}

func participantsRegisterCmd(a *app) *cobra.Command {
	var d model.ParticipantDraft

	cmd := &cobra.Command{
		Use:   "register EVENT_ID",
		Short: "Register a participant for an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page := workflow.NewEventPage(a.api, a.api, a.note, a.note, a.opts...)
			if err := page.Load(cmd.Context(), args[0]); err != nil {
				return err
			}
			reg, err := page.OpenRegistration()
			if err != nil {
				return err
			}
			err = reg.UpdateFields(map[string]string{
				"firstName": d.FirstName,
				"lastName":  d.LastName,
				"email":     d.Email,
				"phone":     d.Phone,
			})
			if err != nil {
				return err
			}

			p, err := reg.Submit(cmd.Context())
			if err != nil {
				if errors.Is(err, workflow.ErrValidation) || len(reg.Errors()) > 0 {
					printFieldErrors(cmd.ErrOrStderr(), reg.Errors())
				}
				return err
			}
			e, _ := page.Event()
			printEvent(a.out, e, page.Gate())
			return printRows(a.out, workflow.RowsFor([]model.Participant{*p}))
		},
	}

	f := cmd.Flags()
	f.StringVar(&d.FirstName, "first-name", "", "First name")
	f.StringVar(&d.LastName, "last-name", "", "Last name")
	f.StringVar(&d.Email, "email", "", "Email address")
	f.StringVar(&d.Phone, "phone", "", "Phone number")
	return cmd
}

func participantsRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove EVENT_ID PARTICIPANT_ID",
		Short: "Remove a participant from an event",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			roster := workflow.NewRoster(a.api, a.note, a.opts...)
			if err := roster.Remove(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			return printRows(a.out, roster.Rows())
		},
	}
}

func participantsExportCmd(a *app) *cobra.Command {
	var (
		format string
		dir    string
	)

	cmd := &cobra.Command{
		Use:   "export EVENT_ID",
		Short: "Download the participant list of an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roster := workflow.NewRoster(a.api, a.note, a.opts...)
			_, err := roster.Download(cmd.Context(), args[0], model.ExportFormat(format), workflow.DirSaver(dir))
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(model.ExportCSV), "Export format: pdf, csv or excel")
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to save the export in")
	return cmd
}
