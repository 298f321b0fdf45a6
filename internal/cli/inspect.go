package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/ByLCY/sleuthprint/binding"
	"github.com/ByLCY/sleuthprint/config"
	"github.com/ByLCY/sleuthprint/layout"
	"github.com/ByLCY/sleuthprint/pager"
	"github.com/ByLCY/sleuthprint/pipeline"
)

func newInspectCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the resolved page layout and templates of a job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			loggerFromContext(cmd.Context()).Debug("已读取配置", "path", path, "job", cfg.Describe())
			return inspect(cmd.OutOrStdout(), cfg)
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c", "", "任务配置文件（.json 或 .toml）")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func inspect(w io.Writer, cfg *config.Config) error {
	fmt.Fprintln(w, styleTitle.Render(cfg.Describe()))
	if cfg.Kind == config.KindBook {
		rows := make([][]string, 0, len(cfg.Book.Chapters))
		for i, ch := range cfg.Book.Chapters {
			rows = append(rows, []string{fmt.Sprint(i + 1), ch.Title, ch.File})
		}
		fmt.Fprintln(w, renderTable([]string{"#", "Chapter", "File"}, rows))
		return nil
	}

	items, tpls, err := cfg.Prepare()
	if err != nil {
		return err
	}
	grid, err := pipeline.Layout(cfg)
	if err != nil {
		return err
	}
	pw, ph := grid.PageSize()
	printKeyValue(w, "page", fmt.Sprintf("%d×%d px", pw, ph))
	if g, ok := grid.(layout.GridLayout); ok {
		printKeyValue(w, "cell", fmt.Sprintf("%d×%d px", g.CellW, g.CellH))
		printKeyValue(w, "grid", fmt.Sprintf("%d × %d (%s, gap %d/%d)", g.Columns, g.Rows, g.Spacing, g.GapX, g.GapY))
	}
	printNumber(w, "capacity", grid.Capacity())
	printNumber(w, "items", len(items))
	printNumber(w, "pages", pager.PageCount(len(items), grid.Capacity()))

	if len(tpls) > 0 {
		names := make([]string, 0, len(tpls))
		for name := range tpls {
			names = append(names, name)
		}
		sort.Strings(names)
		rows := make([][]string, 0, len(names))
		for _, name := range names {
			rows = append(rows, []string{name, binding.Describe(tpls[name])})
		}
		fmt.Fprintln(w, renderTable([]string{"Name", "Template"}, rows))
	}
	return nil
}

func renderTable(headers []string, rows [][]string) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return cell
		}).
		String()
}
