package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ByLCY/sleuthprint/apperr"
	"github.com/ByLCY/sleuthprint/config"
	"github.com/ByLCY/sleuthprint/pipeline"
)

type renderOpts struct {
	config string
	output string
	debug  string
	sink   string
}

func newRenderCmd() *cobra.Command {
	var opts renderOpts
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a job config to PDF",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.config, "config", "c", "", "任务配置文件（.json 或 .toml）")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "PDF 输出路径（默认 output/<配置名>.pdf）")
	cmd.Flags().StringVar(&opts.debug, "debug", "", "布局调试 JSON 输出路径")
	cmd.Flags().StringVar(&opts.sink, "sink", "", "覆盖配置中的输出后端：canvas 或 fpdf")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

// defaultOutput 为 output/<配置文件名>.pdf
func defaultOutput(configPath string) string {
	base := strings.TrimSuffix(filepath.Base(configPath), filepath.Ext(configPath))
	return filepath.Join("output", base+".pdf")
}

func runRender(cmd *cobra.Command, opts renderOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	out := cmd.OutOrStdout()

	cfg, err := config.Load(opts.config)
	if err != nil {
		return err
	}
	if opts.sink != "" {
		cfg.Sink = opts.sink
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	output := opts.output
	if output == "" {
		output = defaultOutput(opts.config)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return apperr.Wrap(apperr.CodeSinkFailed, err, "创建输出目录失败")
	}

	sum, err := pipeline.Run(ctx, cfg, output, pipeline.Options{Logger: logger, Debug: opts.debug})
	if err != nil {
		return err
	}
	printSuccess(out, "已生成 PDF：%s", styleTitle.Render(output))
	printNumber(out, "pages", sum.Pages)
	printNumber(out, "items", sum.Items)
	if sum.Failed > 0 {
		printWarning(out, "%d 个条目渲染失败，详见日志", sum.Failed)
	}
	if sum.Missing > 0 {
		printWarning(out, "%d 处资源缺失，详见日志", sum.Missing)
	}
	if opts.debug != "" {
		printFile(out, opts.debug)
	}
	return nil
}
