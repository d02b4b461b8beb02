package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cylbom/internal/batch"
	"cylbom/internal/metrics"
	"cylbom/internal/pipeline"
	"cylbom/internal/product"
	"cylbom/internal/rules"
	"cylbom/internal/store"
)

var batchWorkers int

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Bulk BOM generation jobs",
}

var batchRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a batch job over all cylinders in the catalog",
	Args:  cobra.NoArgs,
	RunE:  runBatch,
}

var batchResumeCmd = &cobra.Command{
	Use:   "resume [job-id]",
	Short: "Resume a paused or crashed batch job",
	Args:  cobra.ExactArgs(1),
	RunE:  resumeBatch,
}

var batchStatusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Show batch job progress",
	Args:  cobra.MaximumNArgs(1),
	RunE:  batchStatus,
}

func init() {
	batchRunCmd.Flags().StringVar(&catalogPath, "catalog", "", "catalog YAML file")
	batchRunCmd.Flags().IntVar(&batchWorkers, "workers", 0, "worker pool size (default from config)")
	batchResumeCmd.Flags().StringVar(&catalogPath, "catalog", "", "catalog YAML file")
	batchCmd.AddCommand(batchRunCmd, batchResumeCmd, batchStatusCmd)
}

// batchOptions builds coordinator options from config plus flags.
func batchOptions() (batch.Options, error) {
	itemTimeout, err := cfg.ItemTimeout()
	if err != nil {
		return batch.Options{}, err
	}
	opts := batch.Options{
		Workers:     cfg.Batch.Workers,
		ItemTimeout: itemTimeout,
		BatchSize:   cfg.Batch.BatchSize,
		MaxRetries:  cfg.Batch.MaxRetries,
	}
	if batchWorkers > 0 {
		opts.Workers = batchWorkers
	}
	return opts, nil
}

// catalogCylinders lists the cylinder codes in the catalog, in file
// order.
func catalogCylinders(cmd *cobra.Command) ([]string, error) {
	src, err := loadCatalog()
	if err != nil {
		return nil, err
	}
	items, err := src.Items(cmd.Context())
	if err != nil {
		return nil, err
	}
	var codes []string
	for _, it := range items {
		if product.IsCylinderCode(it.Code) {
			codes = append(codes, it.Code)
		}
	}
	if len(codes) == 0 {
		return nil, fmt.Errorf("catalog has no cylinder codes")
	}
	return codes, nil
}

func newCoordinator(kn store.Knowledge) (*batch.Coordinator, *pipeline.Generator, error) {
	src, err := loadCatalog()
	if err != nil {
		return nil, nil, err
	}
	gen, err := newGenerator(src, kn)
	if err != nil {
		return nil, nil, err
	}
	met := metrics.NewBatch(prometheus.DefaultRegisterer)
	return batch.New(gen, kn, met, logger), gen, nil
}

// watchRules hot-reloads the operator rules directory into the
// generator for the lifetime of a job, when enabled in config.
func watchRules(gen *pipeline.Generator) (stop func(), err error) {
	if !cfg.Rules.Watch {
		return func() {}, nil
	}
	w, err := rules.NewWatcher(cfg.Rules.Directory, logger, gen.ReloadRules)
	if err != nil {
		return nil, err
	}
	if err := w.Start(); err != nil {
		return nil, err
	}
	return w.Stop, nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	codes, err := catalogCylinders(cmd)
	if err != nil {
		return err
	}
	kn, err := openKnowledge()
	if err != nil {
		return err
	}
	defer kn.Close()

	coord, gen, err := newCoordinator(kn)
	if err != nil {
		return err
	}
	stopWatch, err := watchRules(gen)
	if err != nil {
		return err
	}
	defer stopWatch()
	opts, err := batchOptions()
	if err != nil {
		return err
	}

	jobID, err := coord.Start(cmd.Context(), codes, opts)
	if err != nil {
		return err
	}
	fmt.Printf("job %s started: %d items\n", jobID, len(codes))

	waitWithSignals(cmd, coord, jobID)
	return printProgress(cmd, coord, jobID)
}

func resumeBatch(cmd *cobra.Command, args []string) error {
	jobID := args[0]
	codes, err := catalogCylinders(cmd)
	if err != nil {
		return err
	}
	kn, err := openKnowledge()
	if err != nil {
		return err
	}
	defer kn.Close()

	coord, gen, err := newCoordinator(kn)
	if err != nil {
		return err
	}
	stopWatch, err := watchRules(gen)
	if err != nil {
		return err
	}
	defer stopWatch()
	opts, err := batchOptions()
	if err != nil {
		return err
	}

	if err := coord.Resume(cmd.Context(), jobID, codes, opts); err != nil {
		return err
	}
	fmt.Printf("job %s resumed\n", jobID)

	waitWithSignals(cmd, coord, jobID)
	return printProgress(cmd, coord, jobID)
}

// waitWithSignals blocks until the job settles; the first interrupt
// pauses the job so it can be resumed later.
func waitWithSignals(cmd *cobra.Command, coord *batch.Coordinator, jobID string) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	done := make(chan struct{})
	go func() {
		coord.Wait(jobID)
		close(done)
	}()

	select {
	case <-done:
		return
	case sig := <-sigs:
		logger.Info("signal received, pausing job",
			zap.String("job", jobID), zap.String("signal", sig.String()))
		if err := coord.Pause(cmd.Context(), jobID); err != nil {
			logger.Warn("pause failed", zap.Error(err))
		}
		coord.Wait(jobID)
	}
}

func batchStatus(cmd *cobra.Command, args []string) error {
	kn, err := openKnowledge()
	if err != nil {
		return err
	}
	defer kn.Close()

	coord := batch.New(nil, kn, nil, logger)
	if len(args) == 1 {
		return printProgress(cmd, coord, args[0])
	}

	jobs, err := kn.ListJobs(cmd.Context())
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Println("no jobs")
		return nil
	}
	for _, job := range jobs {
		fmt.Printf("%s  %-10s  %d items  started %s\n",
			job.ID, job.Status, job.TotalItems, job.StartedAt.Format(time.RFC3339))
	}
	return nil
}

func printProgress(cmd *cobra.Command, coord *batch.Coordinator, jobID string) error {
	progress, err := coord.Status(cmd.Context(), jobID)
	if err != nil {
		return err
	}
	cp := progress.Checkpoint
	fmt.Printf("job %s: %s\n", jobID, progress.Record.Status)
	fmt.Printf("  processed: %d/%d  ok: %d  failed: %d  skipped: %d  timed out: %d\n",
		cp.ProcessedItems, progress.Record.TotalItems,
		cp.SuccessfulItems, cp.FailedItems, cp.SkippedItems, cp.TimedOutItems)
	if cp.LastProcessedItemCode != "" {
		fmt.Printf("  last item: %s\n", cp.LastProcessedItemCode)
	}
	return nil
}
