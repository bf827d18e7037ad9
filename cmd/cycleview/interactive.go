package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"cycleview/internal/models"
	"cycleview/internal/view"
)

const interactiveHelp = `Commands:
  n, next        select the next cycle        p, prev   select the previous cycle
  first, last    jump to either end           c, clear  clear the selection
  s N            select cycle N               show      reprint the current view
  q TEXT         search (q alone clears)      time T    all|week|month|3months|6months|year
  min N, max N   cycle number bounds ("-" clears)
  export         write the current export CSV
  help           this text                    quit      leave`

// runInteractive drives the dashboard from line commands, the terminal
// counterpart of the dashboard's keyboard navigation.
func runInteractive(ctx context.Context, in io.Reader, out io.Writer, dash *view.Dashboard, outDir string) error {
	fmt.Fprintln(out, interactiveHelp)
	show := func() {
		v := dash.Snapshot(time.Now())
		printOverview(out, v)
		if v.Selected != nil {
			printCycle(out, v.Selected)
		}
	}
	show()

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			return scanner.Err()
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]

		var err error
		changed := true
		switch cmd {
		case "n", "next":
			changed, err = dash.Navigate(ctx, view.MoveNext)
		case "p", "prev":
			changed, err = dash.Navigate(ctx, view.MovePrev)
		case "first":
			changed, err = dash.Navigate(ctx, view.MoveFirst)
		case "last":
			changed, err = dash.Navigate(ctx, view.MoveLast)
		case "c", "clear":
			_, selected := dash.Selected()
			dash.Clear()
			changed = selected
		case "s", "select":
			if len(args) != 1 {
				err = errors.New("usage: s N")
				break
			}
			var n int
			if n, err = strconv.Atoi(args[0]); err == nil {
				err = dash.Select(ctx, n)
			}
		case "q":
			c := dash.Criteria()
			c.SearchQuery = strings.Join(args, " ")
			dash.SetCriteria(c)
		case "time":
			c := dash.Criteria()
			if len(args) != 1 {
				err = errors.New("usage: time all|week|month|3months|6months|year")
				break
			}
			if c.TimeFilter, err = models.ParseTimeFilter(args[0]); err == nil {
				dash.SetCriteria(c)
			}
		case "min", "max":
			err = setCycleBound(dash, cmd, args)
		case "export":
			changed = false
			var path string
			if path, err = writeExport(outDir, dash.Snapshot(time.Now())); err == nil {
				fmt.Fprintf(out, "Exported %s\n", path)
			}
		case "show":
		case "help":
			changed = false
			fmt.Fprintln(out, interactiveHelp)
		case "quit", "exit":
			return nil
		default:
			changed = false
			fmt.Fprintf(out, "unknown command %q, try help\n", cmd)
		}

		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		if changed {
			show()
		}
	}
}

func setCycleBound(dash *view.Dashboard, which string, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s N", which)
	}

	var bound *int
	if args[0] != "-" {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		bound = &n
	}

	c := dash.Criteria()
	if which == "min" {
		c.MinCycleNumber = bound
	} else {
		c.MaxCycleNumber = bound
	}
	dash.SetCriteria(c)
	return nil
}
