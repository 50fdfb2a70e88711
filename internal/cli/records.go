package cli

import (
	"context"
	"fmt"

	"github.com/alwitt/karte/models"
	"github.com/alwitt/karte/service"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// noteFlags binds the visit record fields to command flags
type noteFlags struct {
	PatientName  string
	PatientID    string
	VisitDate    string
	Prescription string
	Subjective   string
	Objective    string
	Assessment   string
	Plan         string
	Summary      string
	Tags         string
}

func (f *noteFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&f.PatientName, "patient-name", "", "patient name")
	flags.StringVar(&f.PatientID, "patient-id", "", "patient ID")
	flags.StringVar(&f.VisitDate, "visit-date", "", "visit date as YYYY-MM-DD")
	flags.StringVar(&f.Prescription, "prescription", "", "prescription")
	flags.StringVar(&f.Subjective, "subjective", "", "S: subjective")
	flags.StringVar(&f.Objective, "objective", "", "O: objective")
	flags.StringVar(&f.Assessment, "assessment", "", "A: assessment")
	flags.StringVar(&f.Plan, "plan", "", "P: plan")
	flags.StringVar(&f.Summary, "summary", "", "free-text summary")
	flags.StringVar(&f.Tags, "tags", "", "comma separated tags")
}

// changed the value of a flag, or nil when the flag was not given
func changed(flags *pflag.FlagSet, name string, value string) *string {
	if !flags.Changed(name) {
		return nil
	}
	return &value
}

func (f *noteFlags) newVisitRecord(flags *pflag.FlagSet) models.NewVisitRecord {
	return models.NewVisitRecord{
		ClinicalNote: models.ClinicalNote{
			PatientName:  f.PatientName,
			PatientID:    f.PatientID,
			VisitDate:    f.VisitDate,
			Prescription: f.Prescription,
			Subjective:   f.Subjective,
			Objective:    f.Objective,
			Assessment:   f.Assessment,
			Plan:         f.Plan,
		},
		Summary: changed(flags, "summary", f.Summary),
		Tags:    changed(flags, "tags", f.Tags),
	}
}

func (f *noteFlags) recordUpdate(flags *pflag.FlagSet) models.RecordUpdate {
	return models.RecordUpdate{
		PatientName:  changed(flags, "patient-name", f.PatientName),
		PatientID:    changed(flags, "patient-id", f.PatientID),
		VisitDate:    changed(flags, "visit-date", f.VisitDate),
		Prescription: changed(flags, "prescription", f.Prescription),
		Subjective:   changed(flags, "subjective", f.Subjective),
		Objective:    changed(flags, "objective", f.Objective),
		Assessment:   changed(flags, "assessment", f.Assessment),
		Plan:         changed(flags, "plan", f.Plan),
		Summary:      changed(flags, "summary", f.Summary),
		Tags:         changed(flags, "tags", f.Tags),
	}
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	fields := &noteFlags{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record a new clinical visit",
		Long: `Record a new clinical visit.

The visit date defaults to today.

Example:
  karte create --patient-name 山田太郎 --patient-id P-001 --prescription "アムロジピン 5mg" \
    --subjective 頭痛 --objective "BP 150/95" --assessment 高血圧 --plan 再診`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input := fields.newVisitRecord(cmd.Flags())
			return runWithRecordService(cmd, rootOpts,
				func(ctx context.Context, records service.RecordService) error {
					record, err := records.CreateRecord(ctx, input, nil)
					if err != nil {
						return err
					}
					return writeJSON(cmd.OutOrStdout(), record)
				},
			)
		},
	}
	fields.register(cmd.Flags())

	return cmd
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List visit records, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("invalid --limit %d: must not be negative", limit)
			}
			return runWithRecordService(cmd, rootOpts,
				func(ctx context.Context, records service.RecordService) error {
					views, err := records.ListRecords(ctx, limit, nil)
					if err != nil {
						return err
					}
					if asJSON {
						return writeJSON(cmd.OutOrStdout(), views)
					}
					out := cmd.OutOrStdout()
					for _, view := range views {
						fmt.Fprintf(out, "%s  %s", view.Record.ID, view.Summary)
						if view.Status != service.DocumentStatusOK {
							fmt.Fprintf(out, "  [%s] %s", view.Status, view.Warning)
						}
						fmt.Fprintln(out)
					}
					return nil
				},
			)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "max number of records; 0 for the configured default")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the records as JSON")

	return cmd
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <record-id>",
		Short: "Show a visit record with its document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithRecordService(cmd, rootOpts,
				func(ctx context.Context, records service.RecordService) error {
					view, err := records.GetRecordForEdit(ctx, args[0], nil)
					if err != nil {
						return err
					}
					return writeJSON(cmd.OutOrStdout(), view)
				},
			)
		},
	}
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	fields := &noteFlags{}

	cmd := &cobra.Command{
		Use:   "update <record-id>",
		Short: "Change fields of a visit record",
		Long: `Change fields of a visit record.

Only the fields given as flags are changed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			update := fields.recordUpdate(cmd.Flags())
			return runWithRecordService(cmd, rootOpts,
				func(ctx context.Context, records service.RecordService) error {
					record, err := records.UpdateRecord(ctx, args[0], update, nil)
					if err != nil {
						return err
					}
					return writeJSON(cmd.OutOrStdout(), record)
				},
			)
		},
	}
	fields.register(cmd.Flags())

	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <record-id>",
		Short: "Delete a visit record; its document is kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithRecordService(cmd, rootOpts,
				func(ctx context.Context, records service.RecordService) error {
					if err := records.DeleteRecord(ctx, args[0], nil); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
					return nil
				},
			)
		},
	}
}
