package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"stactask/pkg/task"
)

type runFlags struct {
	task           string
	output         string
	workdir        string
	saveWorkdir    bool
	upload         bool
	noUpload       bool
	skipUpload     bool
	validate       bool
	noValidate     bool
	skipValidation bool
	local          bool
	concurrency    int
	assets         []string
}

// options 把命令行开关折算为运行参数，--local 优先。
func (f runFlags) options() (task.Options, string) {
	opts := task.Options{
		Workdir:           f.workdir,
		SaveWorkdir:       f.saveWorkdir,
		Upload:            f.upload && !f.noUpload && !f.skipUpload,
		Validate:          f.validate && !f.noValidate && !f.skipValidation,
		UploadConcurrency: f.concurrency,
		UploadAssets:      f.assets,
	}
	output := f.output
	if f.local {
		opts.Upload = false
		opts.SaveWorkdir = true
		if opts.Workdir == "" {
			opts.Workdir = LocalWorkdir
		}
		if output == "" {
			output = LocalOutput
		}
	}
	return opts, output
}

func (a *app) runCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run [input]",
		Short: "Run a task on a payload file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := a.taskName(f.task)
			if err != nil {
				return err
			}
			in, err := a.readPayload(cmd, args)
			if err != nil {
				return err
			}
			opts, output := f.options()
			opts.AllowExternalAssets = a.allowLocal
			out, err := a.runner().Run(cmd.Context(), name, in, opts)
			if err != nil {
				return err
			}
			return a.writeOutput(cmd, output, out)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.task, "task", "t", "", "task name")
	fl.StringVarP(&f.output, "output", "o", "", "write the output payload to this path instead of stdout")
	fl.StringVar(&f.workdir, "workdir", "", "use this working directory instead of a temporary one")
	fl.BoolVar(&f.saveWorkdir, "save-workdir", false, "keep the temporary working directory")
	fl.BoolVar(&f.upload, "upload", true, "upload assets")
	fl.BoolVar(&f.noUpload, "no-upload", false, "do not upload assets")
	fl.BoolVar(&f.skipUpload, "skip-upload", false, "do not upload assets")
	fl.BoolVar(&f.validate, "validate", true, "run task input validation")
	fl.BoolVar(&f.noValidate, "no-validate", false, "skip task input validation")
	fl.BoolVar(&f.skipValidation, "skip-validation", false, "skip task input validation")
	fl.BoolVar(&f.local, "local", false, "run locally: save workdir, no upload, write into "+LocalWorkdir)
	fl.IntVar(&f.concurrency, "upload-concurrency", 4, "parallel asset uploads")
	fl.StringSliceVar(&f.assets, "asset", nil, "asset keys to upload, default all")
	_ = fl.MarkDeprecated("skip-upload", "use --no-upload")
	_ = fl.MarkDeprecated("skip-validation", "use --no-validate")
	return cmd
}

func (a *app) resolveCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "resolve [input]",
		Short: "Print task parameters and collection assignments for a payload",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := a.readPayload(cmd, args)
			if err != nil {
				return err
			}
			plan, err := a.runner().Plan(in, name)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(plan)
		},
	}
	cmd.Flags().StringVarP(&name, "task", "t", "", "task whose parameters are resolved")
	return cmd
}

func (a *app) tasksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List registered tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tVERSION\tDESCRIPTION")
			for _, info := range a.registry.Infos() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", info.Name, info.Version, info.Description)
			}
			return w.Flush()
		},
	}
}
