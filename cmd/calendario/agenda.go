package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"calendario/internal/agenda"
	"calendario/internal/model"
	"calendario/internal/notify"
)

var (
	dayColor      = color.New(color.Bold)
	emphasisColor = color.New(color.FgRed, color.Bold)
	holidayColor  = color.New(color.FgYellow)
	noticeColor   = color.New(color.FgHiBlack)
)

func newAgendaCmd(flags *rootFlags) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "Print the grouped agenda once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			a, err := openApp(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()

			settings, err := a.initialSettings(ctx)
			if err != nil {
				return err
			}
			// Load never schedules, so the alarm is never started.
			scheduler := notify.NewScheduler(notify.NewCronAlarm(a.loc, nil, nil), nil, a.loc, nil)
			b := agenda.NewBuilder(a.events, scheduler, a.holidays, agenda.Options{
				Location:          a.loc,
				HolidayWindowDays: cfg.Agenda.HolidayWindowDays,
				Settings:          settings,
			})
			groups, err := b.Load(ctx, "")
			if err != nil {
				return err
			}

			until := ""
			if days > 0 {
				until = model.DayKey(time.Now().AddDate(0, 0, days), a.loc)
			}
			printAgenda(cmd.OutOrStdout(), groups, settings.TimeFormat, a.loc, until)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 14, "Only show this many days ahead (0 for all loaded)")
	return cmd
}

// printAgenda writes one block per group up to and including the day key
// until; an empty until prints everything.
func printAgenda(w io.Writer, groups []agenda.Group, tf model.TimeFormat, loc *time.Location, until string) {
	for _, g := range groups {
		if until != "" && g.Title > until {
			break
		}
		header := g.Title
		if day, err := model.ParseDayKey(g.Title, loc); err == nil {
			header = fmt.Sprintf("%s  %s, %s", g.Title, day.Weekday().String()[:3], model.FormatDate(day))
		}
		if g.Emphasis {
			emphasisColor.Fprintln(w, header)
		} else {
			dayColor.Fprintln(w, header)
		}

		if len(g.Data) == 0 {
			fmt.Fprintln(w, "  (nothing scheduled)")
		}
		for _, it := range g.Data {
			if it.Kind == agenda.KindHoliday {
				holidayColor.Fprintf(w, "  * %s\n", it.Description)
				continue
			}
			fmt.Fprintf(w, "  %s  %s", model.FormatTime(it.At.In(loc), tf), it.Description)
			if it.Event != nil && it.Event.Notification {
				noticeColor.Fprintf(w, "  (%s)", notify.Describe(*it.Event, tf, loc))
			}
			fmt.Fprintln(w)
		}
	}
}
