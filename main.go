package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron"

	"YieldCurvePCA/src/config"
	"YieldCurvePCA/src/datapush"
	"YieldCurvePCA/src/datasource/email"
	"YieldCurvePCA/src/datasource/file"
	"YieldCurvePCA/src/exporter"
	"YieldCurvePCA/src/presenter"
	"YieldCurvePCA/src/processor"
	"YieldCurvePCA/src/storage"
)

func main() {
	configPath := flag.String("config", filepath.Join("config", "config.json"), "JSON config path")
	csvPath := flag.String("csv", "", "yield table to analyze, .csv or .xlsx (default from config)")
	encodingName := flag.String("encoding", "", "text encoding of the CSV (default cp932)")
	sheet := flag.String("sheet", "", "sheet name for .xlsx input (default first sheet)")
	components := flag.Int("components", 0, "number of principal components (default 3)")
	savePath := flag.String("save", "", "chart PNG output path (default <input>_pca.png)")
	exportPath := flag.String("export", "", "also write a results workbook to this path")
	watch := flag.Bool("watch", false, "watch the data directory and re-run on new tables")
	schedule := flag.Bool("schedule", false, "poll the configured inbox on the configured interval")
	help := flag.Bool("h", false, "show help")
	flag.BoolVar(help, "help", false, "show help")
	flag.Parse()

	if *help {
		fmt.Fprintln(os.Stderr, "Usage: yieldcurvepca [-csv <path>] [-encoding cp932] [-components 3] [-save out.png]")
		fmt.Fprintln(os.Stderr, "Extract Level/Slope/Curvature factors from a JGB yield-curve table.")
		flag.PrintDefaults()
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg, *csvPath, *encodingName, *sheet, *components)

	logger, err := storage.NewLogger(cfg.LogName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	switch {
	case *watch:
		runWatch(cfg, logger, *savePath, *exportPath)
	case *schedule:
		runSchedule(cfg, logger, *savePath, *exportPath)
	default:
		input := cfg.Input.File
		if !filepath.IsAbs(input) {
			if _, err := os.Stat(input); err != nil {
				input = filepath.Join(cfg.DataDir, cfg.Input.File)
			}
		}
		if err := runPipeline(cfg, logger, input, *savePath, *exportPath); err != nil {
			logger.Error(err.Error())
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}

func applyFlags(cfg *config.Config, csvPath, encodingName, sheet string, components int) {
	if csvPath != "" {
		cfg.Input.File = csvPath
	}
	if encodingName != "" {
		cfg.Input.Encoding = encodingName
	}
	if sheet != "" {
		cfg.Input.Sheet = sheet
	}
	if components > 0 {
		cfg.Analysis.Components = components
	}
}

// runPipeline executes one load → clean → decompose → present pass.
func runPipeline(cfg *config.Config, logger *storage.Logger, input, savePath, exportPath string) error {
	if err := logger.CheckRotate(cfg.LogMaxSize); err != nil {
		logger.Warning("log rotation: " + err.Error())
	}
	logger.Info("analyzing " + input)

	df, err := file.ReadTable(input, file.Options{
		Encoding: cfg.Input.Encoding,
		Sheet:    cfg.Input.Sheet,
	})
	if err != nil {
		return err
	}

	table, err := processor.Clean(df, cfg.Input.Sentinels)
	if err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("retained %d of %d rows across %d maturities",
		table.Rows(), df.Nrow(), table.Cols()))

	dec, err := processor.Decompose(table, cfg.Analysis.Components)
	if err != nil {
		return err
	}

	fs, err := presenter.BuildFactorSeries(table, dec, logger)
	if err != nil {
		return err
	}

	summary := presenter.Summary(fs, dec)
	fmt.Print(summary)

	if savePath == "" {
		base := strings.TrimSuffix(input, filepath.Ext(input))
		savePath = base + "_pca.png"
	}
	if err := presenter.RenderPNG(presenter.Chart(fs, cfg.Analysis.ChartTitle), savePath); err != nil {
		return err
	}
	logger.Info("chart written: " + savePath)

	outputs := []string{savePath}
	if exportPath != "" {
		if err := exporter.WriteWorkbook(exportPath, dec, fs); err != nil {
			return err
		}
		logger.Info("workbook written: " + exportPath)
		outputs = append(outputs, exportPath)
	}

	if cfg.Push.URL != "" {
		err := datapush.NewPusher(cfg.Push.URL).Push(&datapush.Summary{
			Source:         input,
			RunAt:          time.Now(),
			RetainedDates:  table.Rows(),
			FactorNames:    fs.Names,
			VarianceRatios: dec.VarianceRatios,
			Text:           summary,
		})
		if err != nil {
			logger.Error(err.Error()) // the analysis itself succeeded
		}
	}

	if cfg.Report.Enabled {
		subject := cfg.Analysis.ChartTitle + " " + time.Now().Format("2006-01-02")
		if err := email.SendReport(cfg, subject, summary, outputs); err != nil {
			logger.Error("send report: " + err.Error())
		}
	}
	return nil
}

// runWatch re-runs the pipeline whenever a yield table in the data
// directory changes.
func runWatch(cfg *config.Config, logger *storage.Logger, savePath, exportPath string) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		logger.Error("create data dir: " + err.Error())
		os.Exit(1)
	}
	monitor, err := file.NewMonitor(cfg.DataDir)
	if err != nil {
		logger.Error("watch " + cfg.DataDir + ": " + err.Error())
		os.Exit(1)
	}
	defer monitor.Close()

	echoLog(logger)
	setupSignalHandler(func() { monitor.Close() })
	logger.Info("watching " + cfg.DataDir + " for yield tables, Ctrl+C to stop")

	monitor.Watch(func(path string) {
		if err := runPipeline(cfg, logger, path, savePath, exportPath); err != nil {
			logger.Error(err.Error())
		}
	})
}

// runSchedule polls the configured inbox for yield-table deliveries and
// analyzes every table it saves.
func runSchedule(cfg *config.Config, logger *storage.Logger, savePath, exportPath string) {
	client := email.NewClient(cfg.Email.Server, cfg.Email.Username, cfg.Email.Password)
	handler := email.NewAttachmentHandler(cfg.Email.TargetSubject, cfg.DataDir)

	interval := time.Duration(cfg.Email.CheckInterval)
	cronSpec := fmt.Sprintf("@every %s", interval)

	c := cron.New()
	err := c.AddFunc(cronSpec, func() {
		saved, err := email.CheckInbox(client, handler, logger)
		if err != nil {
			logger.Error("check inbox: " + err.Error())
			return
		}
		for _, path := range saved {
			if err := runPipeline(cfg, logger, path, savePath, exportPath); err != nil {
				logger.Error(err.Error())
			}
		}
	})
	if err != nil {
		logger.Error("schedule: " + err.Error())
		os.Exit(1)
	}

	echoLog(logger)
	c.Start()
	defer c.Stop()

	logger.Info(fmt.Sprintf("inbox polling started (interval %v), Ctrl+C to stop", interval))
	waitForShutdown(logger)
}

// echoLog mirrors log entries on the console for the long-running modes.
func echoLog(logger *storage.Logger) {
	ch := logger.Subscribe()
	go func() {
		for entry := range ch {
			fmt.Print(entry)
		}
	}()
}

func setupSignalHandler(stop func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		stop()
	}()
}

func waitForShutdown(logger *storage.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("received signal: " + sig.String() + ", shutting down")
}
