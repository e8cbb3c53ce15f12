package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	units "github.com/docker/go-units"
	jsoniter "github.com/json-iterator/go"
	"github.com/moby/term"
	"github.com/spf13/cobra"

	"github.com/cocoonstack/vmswap/manager"
)

const (
	formatAuto  = "auto"
	formatTable = "table"
	formatJSON  = "json"
)

// initManager builds the Manager from the loaded config.
func initManager() (*manager.Manager, error) {
	m, err := manager.New(conf)
	if err != nil {
		return nil, fmt.Errorf("init manager: %w", err)
	}
	return m, nil
}

// outputJSON reports whether results should be printed as JSON: either
// requested explicitly, or auto with stdout redirected away from a terminal.
func outputJSON(cmd *cobra.Command) (bool, error) {
	format, _ := cmd.Flags().GetString("format")
	switch format {
	case formatJSON:
		return true, nil
	case formatTable:
		return false, nil
	case formatAuto, "":
		_, isTerm := term.GetFdInfo(os.Stdout)
		return !isTerm, nil
	default:
		return false, fmt.Errorf("invalid --format %q: want %s, %s or %s", format, formatAuto, formatTable, formatJSON)
	}
}

func printJSON(v any) error {
	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(header string) *tabwriter.Writer {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, header)
	return w
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

// fileSize returns the human-readable size of path, or "missing".
func fileSize(path string) string {
	fi, err := os.Stat(path)
	if err != nil {
		return "missing"
	}
	return units.HumanSize(float64(fi.Size()))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
