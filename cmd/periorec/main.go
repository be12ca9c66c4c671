package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/perioclinic/perio-records/config"
	"github.com/perioclinic/perio-records/internal/model"
	"github.com/perioclinic/perio-records/internal/repository"
	"github.com/perioclinic/perio-records/internal/repository/yamlfile"
	"github.com/perioclinic/perio-records/internal/service/audit"
	"github.com/perioclinic/perio-records/internal/service/patient"
	"github.com/perioclinic/perio-records/internal/service/stats"
	"github.com/perioclinic/perio-records/pkg/logger"
	"github.com/perioclinic/perio-records/pkg/metrics"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "periorec",
		Short:        "Periodontal clinic patient and appointment records",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		findCmd(),
		todayCmd(),
		statsCmd(),
		recordsCmd(),
		addCmd(),
		modifyAppointmentCmd(),
		modifyPatientCmd(),
		deleteAppointmentCmd(),
		deletePatientCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app wires the store, repository and services behind every subcommand.
type app struct {
	cfg      *config.Config
	logger   *logger.Logger
	repo     *repository.Repository
	auditor  *audit.Service
	stats    *stats.Service
	patients *patient.Service
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logCfg := &logger.Config{
		Level:      level,
		TimeFormat: time.RFC3339,
		Console:    cfg.Log.Console,
	}
	if cfg.Log.File != "" {
		out, err := logger.FileOutput(cfg.Log.File)
		if err != nil {
			return nil, err
		}
		logCfg.Output = out
		logCfg.Console = false
	}
	lg := logger.Setup(logCfg)

	m := metrics.NewMetrics(cfg.Metrics.Namespace, "records")

	store := yamlfile.NewRecordStore(cfg.Records.Path)
	repo := repository.New(store, m, lg)
	result, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	auditor := audit.NewService(lg)
	statsSvc := stats.NewService(repo, cfg.Stats.CacheTTL, cfg.Stats.CacheCleanup, m)
	patientSvc := patient.NewService(repo, auditor, statsSvc, m)

	lg.Info("records loaded",
		"run_id", auditor.RunID().String(),
		"records", cfg.Records.Path,
		"patients", repo.Len(),
		"skipped", len(result.Skipped))

	return &app{
		cfg:      cfg,
		logger:   lg,
		repo:     repo,
		auditor:  auditor,
		stats:    statsSvc,
		patients: patientSvc,
	}, nil
}

func (a *app) save(ctx context.Context) error {
	return a.patients.Save(ctx)
}

// logMetrics mirrors the run's counters into the debug log; a one-shot
// process has no scrape endpoint to read them from.
func (a *app) logMetrics() {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		a.logger.Error(err, "failed to gather metrics")
		return
	}
	prefix := a.cfg.Metrics.Namespace + "_"
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), prefix) {
			continue
		}
		for _, m := range mf.GetMetric() {
			fields := []interface{}{"metric", mf.GetName()}
			for _, l := range m.GetLabel() {
				fields = append(fields, l.GetName(), l.GetValue())
			}
			switch {
			case m.GetCounter() != nil:
				fields = append(fields, "value", m.GetCounter().GetValue())
			case m.GetGauge() != nil:
				fields = append(fields, "value", m.GetGauge().GetValue())
			case m.GetHistogram() != nil:
				fields = append(fields, "samples", m.GetHistogram().GetSampleCount())
			}
			a.logger.Debug("metric", fields...)
		}
	}
}

func printYAML(w io.Writer, v any) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

func findCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "find <mrn>",
		Short: "Print a one-line summary for a patient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.logMetrics()
			p, err := a.patients.FindPatient(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}
}

func todayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Print today's date in record form (yyyymmdd)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.logMetrics()
			fmt.Fprintln(cmd.OutOrStdout(), a.patients.TodayDate())
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Tally appointment types and procedures across all patients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")

			window, err := stats.ParseWindow(from, to)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.logMetrics()
			return printYAML(cmd.OutOrStdout(), a.stats.Tally(cmd.Context(), window))
		},
	}
	cmd.Flags().String("from", "", "count only appointments after this date (yyyymmdd, exclusive)")
	cmd.Flags().String("to", "", "count only appointments before this date (yyyymmdd, exclusive)")
	return cmd
}

func recordsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "records <mrn>",
		Short: "Print a patient's chart with appointments newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.logMetrics()
			chart, err := a.patients.Chart(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printYAML(cmd.OutOrStdout(), chart)
		},
	}
}

func addCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <mrn> <attributes...>",
		Short: "Add an appointment, creating the patient when new",
		Long: `Add an appointment for a patient, creating the patient when the mrn is
not on file yet (new patients need --first, --last, --birthday and --sex).

Attributes are positional tokens:

  DATE:yyyymmdd   appointment date (required)
  PeriodicExam | LimitedExam | ComprehensiveExam | Surgery
                  appointment type (required)
  ASA:<n>         ASA physical status classification
  NOTE:<text>     clinical note; separate words with - instead of spaces
  <anything else> procedure flag for the appointment type, eg biopsy`,
		Example: "  periorec add 12345 DATE:20260301 Surgery biopsy implant ASA:2 NOTE:healed-well",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.logMetrics()
			rec, err := a.appointmentRecord(cmd, args)
			if err != nil {
				return err
			}
			if err := a.patients.AddAppointment(cmd.Context(), rec); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %v on %v for patient %v.\n",
				rec[model.FieldType], rec[model.FieldDate], rec[model.FieldMRN])
			return a.save(cmd.Context())
		},
	}
	addIdentityFlags(cmd)
	return cmd
}

func modifyAppointmentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modify-appointment <mrn> <attributes...>",
		Short: "Replace the appointment matching the given type and date",
		Long: `Replace a patient's appointment with a rebuilt one. The appointment to
replace is matched by type and date; attribute tokens use the same syntax
as add.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.logMetrics()
			rec, err := a.appointmentRecord(cmd, args)
			if err != nil {
				return err
			}
			if err := a.patients.ModifyAppointment(cmd.Context(), rec); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Modified %v on %v for patient %v.\n",
				rec[model.FieldType], rec[model.FieldDate], rec[model.FieldMRN])
			return a.save(cmd.Context())
		},
	}
}

func modifyPatientCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modify-patient <mrn> <first> <last> <birthday> <sex>",
		Short: "Replace a patient's identity fields",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.logMetrics()
			rec := model.Record{
				model.FieldMRN:      args[0],
				model.FieldFirst:    args[1],
				model.FieldLast:     args[2],
				model.FieldBirthday: args[3],
				model.FieldSex:      args[4],
			}
			changes, err := a.patients.ModifyPatient(cmd.Context(), rec)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), changes)
			return a.save(cmd.Context())
		},
	}
}

func deleteAppointmentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-appointment <mrn> <date>",
		Short: "Delete a patient's appointment on the given date (yyyymmdd)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.logMetrics()
			if err := a.patients.DeleteAppointment(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted appointment on %s for patient %s.\n", args[1], args[0])
			return a.save(cmd.Context())
		},
	}
}

func deletePatientCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-patient <mrn>",
		Short: "Delete a patient and all of their appointments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.logMetrics()
			if err := a.patients.DeletePatient(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted patient %s.\n", args[0])
			return a.save(cmd.Context())
		},
	}
}
