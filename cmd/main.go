package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"orderflow-engine/internal/api"
	"orderflow-engine/internal/engine"
	"orderflow-engine/internal/indicator"
	"orderflow-engine/internal/model"
	"orderflow-engine/internal/saver"
	"orderflow-engine/internal/service"
	"orderflow-engine/internal/strategy"
	"orderflow-engine/pkg/ta"
)

func main() {
	service.InitLogger()
	defer service.Logger.Sync()

	configPath := "config"
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		service.Logger.Fatal("Configuration directory 'config/' not found. Please create it.")
	}
	cfg := service.LoadConfig(configPath)

	// 1. 收集所有要订阅的 Symbol
	var symbols []string
	for _, instanceCfg := range cfg.Instances {
		symbols = append(symbols, instanceCfg.Symbol)
	}

	// 2. 初始化落盘器与 Connector
	barSaver := saver.NewBarSaver(cfg.Output.Format)
	if barSaver == nil {
		service.Logger.Fatal("Unsupported output format", zap.String("Format", cfg.Output.Format))
	}
	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		service.Logger.Fatal("Failed to create output dir", zap.Error(err))
	}

	connector := api.NewConnector(cfg.Exchange.WSURL, symbols)
	go connector.Start()

	// 3. 为每个实例启动一个隔离的聚合管线
	var wg sync.WaitGroup
	for instanceName, instanceCfg := range cfg.Instances {
		service.Logger.Info(fmt.Sprintf("Instance: %s, Symbol: %s", instanceName, instanceCfg.Symbol))

		wg.Add(1)
		go func(name string, instance service.InstanceConfig) {
			defer wg.Done()

			instanceLogger := service.Logger.With(
				zap.String("Instance", name), zap.String("Symbol", instance.Symbol))
			instanceLogger.Info("Starting isolated aggregation pipeline...")

			// Tick Input: 使用 Connector 的统一输出通道
			tickInputChan := connector.GetTickChannel()

			// Data Engine: 消费统一通道，只处理自己的 Symbol，多周期并行聚合
			dataEngine, err := engine.NewDataEngine(
				tickInputChan,
				instance.Symbol,
				instance.Bars.Intervals,
				engine.AggregatorConfig{
					TickSideLogic:  instance.Bars.TickSideLogic,
					FlagsBuyValue:  instance.Bars.FlagsBuyValue,
					FlagsSellValue: instance.Bars.FlagsSellValue,
					Strict:         instance.Bars.Strict,
				},
				instanceLogger,
			)
			if err != nil {
				// 配置错误在启动期一次性暴露，绝不带病进入数据流
				instanceLogger.Fatal("Invalid bar configuration", zap.Error(err))
			}

			taClient := ta.NewTACalculator(instanceLogger)
			stateMachine := strategy.NewStateMachine(taClient, "1H", instanceLogger)

			go dataEngine.Start()

			// 主循环: 消费完成的 Bar，驱动指标快照和状态机
			history := make(map[string][]model.Bar)
			for bar := range dataEngine.GetBarChannel() {
				taClient.UpdateBar(bar)
				stateMachine.CheckAndTransition(bar)
				history[bar.Interval] = append(history[bar.Interval], bar)

				instanceLogger.Info("Bar finalized",
					zap.String("Interval", bar.Interval),
					zap.Time("Start", bar.Start),
					zap.Float64("Close", bar.Close),
					zap.Int64("Volume", bar.Volume),
					zap.Int64("Delta", bar.BarDelta),
					zap.Float64("POC", bar.POCPrice),
					zap.String("State", string(stateMachine.GetCurrentState())))
			}

			// Tick 流结束 (Connector 停机)，批量计算指标并落盘
			for interval, bars := range history {
				columns := indicator.Enrich(bars, instance.Indicators)
				instanceLogger.Info("Indicator enrichment complete",
					zap.String("Interval", interval),
					zap.Int("Bars", len(bars)),
					zap.Int("Columns", len(columns)))

				path := filepath.Join(cfg.Output.Dir,
					fmt.Sprintf("%s_%s.%s", instance.Symbol, interval, barSaver.Extension()))
				if err := barSaver.Save(bars, path); err != nil {
					instanceLogger.Error("Failed to save bars", zap.String("Path", path), zap.Error(err))
					continue
				}
				instanceLogger.Info("Bars saved", zap.String("Path", path))
			}
		}(instanceName, instanceCfg)
	}

	// 4. 等待退出信号，停机前让各管线 flush 并落盘
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	service.Logger.Info("Shutdown signal received, flushing open bars...")
	connector.Stop()
	wg.Wait()
	service.Logger.Info("All pipelines drained. Bye.")
}
