// Command presence evaluates a punch export offline and writes the report
// workbook, without a database.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/config"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/presence"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/punchfile"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/utils"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/workbook"
	presenceService "github.com/cmlabs-hris/presence-backend-go/internal/service/presence"
	"github.com/spf13/cobra"
)

const appVersion = "1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type globalOptions struct {
	rulesFile string
	verbose   bool
}

func (o *globalOptions) rules() (presence.Rules, error) {
	if o.rulesFile == "" {
		return presence.DefaultRules(), nil
	}
	return config.LoadRules(o.rulesFile)
}

func (o *globalOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:          "presence",
		Short:        "Attendance ledger from time-clock punch exports",
		SilenceUsage: true,
	}
	cmd.Version = appVersion
	cmd.SetVersionTemplate("presence v{{.Version}}\n")

	cmd.PersistentFlags().StringVar(&opts.rulesFile, "rules", "", "YAML rules file overriding the default policy")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log evaluation details to stderr")

	cmd.AddCommand(newAnalyzeCmd(opts), newEmployeesCmd(), newRestDaysCmd(opts))
	return cmd
}

func readPunches(path string) (punchfile.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return punchfile.Result{}, err
	}
	res, err := punchfile.Parse(path, data)
	if err != nil {
		return punchfile.Result{}, err
	}
	if len(res.Events) == 0 {
		return punchfile.Result{}, errors.New("no punch events found in file")
	}
	return res, nil
}

// ==================== ANALYZE ====================

type analyzeOptions struct {
	out          string
	paramsFile   string
	month        int
	year         int
	from         string
	to           string
	holidays     []string
	restDays     []string
	contractEnds []string
	leaves       []string
	workers      int
}

func newAnalyzeCmd(global *globalOptions) *cobra.Command {
	o := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <punch-file>",
		Short: "Evaluate a punch file and write the report workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := o.params()
			if err != nil {
				return err
			}
			return runAnalyze(cmd.Context(), cmd.OutOrStdout(), global, o, args[0], params)
		},
	}

	cmd.Flags().StringVarP(&o.out, "out", "o", "presence_report.xlsx", "Workbook output path")
	cmd.Flags().StringVar(&o.paramsFile, "params", "", "JSON file with analysis parameters, as sent to the API")
	cmd.Flags().IntVar(&o.month, "month", 0, "Report month (1-12), requires --year")
	cmd.Flags().IntVar(&o.year, "year", 0, "Report year")
	cmd.Flags().StringVar(&o.from, "from", "", "Period start YYYY-MM-DD")
	cmd.Flags().StringVar(&o.to, "to", "", "Period end YYYY-MM-DD")
	cmd.Flags().StringSliceVar(&o.holidays, "holiday", nil, "Holiday date YYYY-MM-DD (repeatable)")
	cmd.Flags().StringArrayVar(&o.restDays, "rest-days", nil, "Employee rest days as NAME=0,6 with Monday=0 (repeatable)")
	cmd.Flags().StringArrayVar(&o.contractEnds, "contract-end", nil, "Contract end as NAME=YYYY-MM-DD (repeatable)")
	cmd.Flags().StringArrayVar(&o.leaves, "leave", nil, "Leave as NAME:TYPE:YYYY-MM-DD:YYYY-MM-DD (repeatable)")
	cmd.Flags().IntVar(&o.workers, "workers", 0, "Evaluation workers (0 = number of CPUs)")
	return cmd
}

// params merges the JSON parameter file with the individual flags, flags last.
func (o *analyzeOptions) params() (presence.AnalyzeParams, error) {
	var p presence.AnalyzeParams
	if o.paramsFile != "" {
		data, err := os.ReadFile(o.paramsFile)
		if err != nil {
			return p, err
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return p, fmt.Errorf("params file: %w", err)
		}
	}

	if o.month != 0 || o.year != 0 {
		p.Month, p.Year = o.month, o.year
	}
	if o.from != "" || o.to != "" {
		p.StartDate, p.EndDate = o.from, o.to
	}
	p.Holidays = append(p.Holidays, o.holidays...)

	for _, s := range o.restDays {
		name, list, ok := strings.Cut(s, "=")
		if !ok {
			return p, fmt.Errorf("--rest-days %q: expected NAME=0,6", s)
		}
		days := []int{}
		for _, d := range strings.Split(list, ",") {
			if d = strings.TrimSpace(d); d == "" {
				continue
			}
			i, err := strconv.Atoi(d)
			if err != nil {
				return p, fmt.Errorf("--rest-days %q: %w", s, err)
			}
			days = append(days, i)
		}
		if p.RestDays == nil {
			p.RestDays = make(map[string][]int)
		}
		p.RestDays[strings.TrimSpace(name)] = days
	}

	for _, s := range o.contractEnds {
		name, date, ok := strings.Cut(s, "=")
		if !ok {
			return p, fmt.Errorf("--contract-end %q: expected NAME=YYYY-MM-DD", s)
		}
		if p.ContractEnds == nil {
			p.ContractEnds = make(map[string]string)
		}
		p.ContractEnds[strings.TrimSpace(name)] = strings.TrimSpace(date)
	}

	for _, s := range o.leaves {
		parts := strings.Split(s, ":")
		if len(parts) != 4 {
			return p, fmt.Errorf("--leave %q: expected NAME:TYPE:START:END", s)
		}
		p.LeavePeriods = append(p.LeavePeriods, presence.LeavePeriodInput{
			Employee:  parts[0],
			Type:      parts[1],
			StartDate: parts[2],
			EndDate:   parts[3],
		})
	}

	return p, nil
}

func runAnalyze(ctx context.Context, out io.Writer, global *globalOptions, o *analyzeOptions, path string, params presence.AnalyzeParams) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := params.Validate(); err != nil {
		return err
	}
	rules, err := global.rules()
	if err != nil {
		return err
	}
	logger := global.logger(os.Stderr)

	period, hasPeriod, err := params.RequestedPeriod()
	if err != nil {
		return err
	}
	var periodPtr *presence.Period
	if hasPeriod {
		periodPtr = &period
	}

	parsed, err := readPunches(path)
	if err != nil {
		return err
	}
	if parsed.Skipped > 0 {
		logger.Info("skipped rows with unknown status", slog.Int("skipped", parsed.Skipped))
	}

	cb := presence.NewConfigBuilder(rules)
	if err := params.ApplyTo(cb); err != nil {
		return err
	}
	holidays, err := params.ParseHolidays()
	if err != nil {
		return err
	}
	leaves, err := params.ParseLeavePeriods()
	if err != nil {
		return err
	}

	builder := presenceService.NewBuilder(rules, o.workers, logger)
	rep, err := builder.Build(ctx, presenceService.Input{
		Events:       parsed.Events,
		Configs:      cb.Build(),
		Holidays:     holidays,
		LeavePeriods: leaves,
	}, periodPtr)
	if err != nil {
		return err
	}

	f, err := os.Create(o.out)
	if err != nil {
		return err
	}
	if err := workbook.Write(f, rep, workbook.Options{GeneratedAt: time.Now()}); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	printSummary(out, rep)
	fmt.Fprintf(out, "\nWorkbook written to %s\n", o.out)
	return nil
}

func printSummary(out io.Writer, rep presence.PeriodReport) {
	if rep.Empty {
		fmt.Fprintf(out, "No workday in period %s\n", rep.Period)
		return
	}
	fmt.Fprintf(out, "Period %s, %d employees, %d rows\n\n", rep.Period, rep.Totals.Employees, rep.Totals.Rows)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EMPLOYEE\tDAYS\tRETARD\tHS 50%\tHS 100%\tWORKED\tPENALTIES\tABSENCES")
	for _, s := range rep.Summaries {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%d\n",
			s.Employee, s.DaysWorked,
			utils.FormatDuration(s.Retard),
			utils.FormatDuration(s.HeuresSup50),
			utils.FormatDuration(s.HeuresSup100),
			utils.FormatDuration(s.TempsTravail),
			utils.FormatDuration(s.Penalites+s.WeeklyPenalties),
			s.NetAbsences,
		)
	}
	tw.Flush()

	for _, f := range rep.Failures {
		fmt.Fprintf(out, "could not evaluate %s on %s: %s\n", f.Employee, f.Date.Format(utils.DateLayout), f.Reason)
	}
}

// ==================== FILE UTILITIES ====================

func newEmployeesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "employees <punch-file>",
		Short: "List the employees found in a punch file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := readPunches(args[0])
			if err != nil {
				return err
			}
			for _, name := range parsed.Employees() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newRestDaysCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restdays <punch-file>",
		Short: "Suggest rest days from recurring full absences",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := global.rules()
			if err != nil {
				return err
			}
			parsed, err := readPunches(args[0])
			if err != nil {
				return err
			}

			detect := rules
			detect.WorkingDays = []time.Weekday{
				time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
			}
			records := presenceService.ReduceEvents(parsed.Events, detect)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "EMPLOYEE\tREST DAYS\tINDEXES")
			for _, s := range presenceService.DetectRestDays(records, rules) {
				idx := make([]string, len(s.RestDays))
				for i, d := range s.RestDays {
					idx[i] = strconv.Itoa(d)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Employee, strings.Join(s.Labels, ", "), strings.Join(idx, ","))
			}
			return tw.Flush()
		},
	}
}
