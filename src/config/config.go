package config

import (
	"GrowthDashboard/src/model"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Config 结构体定义了应用程序的配置结构
type Config struct {
	Server struct {
		Addr         string   `json:"addr"`          // HTTP 监听地址
		ReadTimeout  Duration `json:"read_timeout"`  // 读超时
		WriteTimeout Duration `json:"write_timeout"` // 写超时
	} `json:"server"`

	Source struct {
		Path         string   `json:"path"`          // 数据集文件路径(.csv 或 .xlsx)
		Encoding     string   `json:"encoding"`      // 文件编码 utf-8 / latin1 / gb18030
		SheetName    string   `json:"sheet_name"`    // xlsx 数据源的工作表名称，空则取第一个
		Strict       bool     `json:"strict"`        // 默认严格模式，任意一行清洗失败即整体失败；false 时跳过错误行
		PollInterval Duration `json:"poll_interval"` // 定时检查数据文件修改时间的间隔
	} `json:"source"`

	// 钉钉群机器人告警，webhook 为空则不推送
	Notify struct {
		Webhook       string   `json:"webhook"`
		RetryTimes    int      `json:"retry_times"`
		RetryInterval Duration `json:"retry_interval"`
		Cooldown      Duration `json:"cooldown"`
	} `json:"notify"`

	BrandImage       string   `json:"brand_image"` // 品牌图片路径
	PidFile          string   `json:"pid_file"`
	LogName          string   `json:"log_name"`
	LogMaxSize       string   `json:"log_max_size"`
	LogCheckInterval Duration `json:"log_check_interval"`
}

// DataConfig 数据相关的配置：标签集合与日期筛选范围
type DataConfig struct {
	Cities            []string `json:"cities"`
	WeatherConditions []string `json:"weather_conditions"`
	TrafficDensities  []string `json:"traffic_densities"`
	DefaultMaxDate    Date     `json:"default_max_date"`
	MinDate           Date     `json:"min_date"`
	MaxDate           Date     `json:"max_date"`
	TopN              int      `json:"top_n"`
}

var (
	once               sync.Once
	instance           *Config
	dataConfigInstance *DataConfig
	mu                 sync.RWMutex
)

// LoadConfig 只加载一次配置，之后的调用返回同一份实例
func LoadConfig(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	var err error
	once.Do(func() {
		instance, dataConfigInstance, err = loadConfigs(jsonFolder, jsonFile, dataJsonFile)
	})
	return instance, dataConfigInstance, err
}

func loadConfigs(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	configFile := filepath.Join(jsonFolder, jsonFile)
	dataConfigFile := filepath.Join(jsonFolder, dataJsonFile)

	configData, err := readFile(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	dataConfigData, err := readFile(dataConfigFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取数据配置文件失败: %w", err)
	}

	cfgChan := make(chan *Config, 1)
	dcfgChan := make(chan *DataConfig, 1)
	errChan := make(chan error, 2)

	go parseConfig(configData, cfgChan, errChan)
	go parseDataConfig(dataConfigData, dcfgChan, errChan)

	cfg, dcfg, err := waitForResults(cfgChan, dcfgChan, errChan)
	if err != nil {
		return nil, nil, err
	}

	applyEnv(cfg)
	return cfg, dcfg, nil
}

func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("无法读取文件 %s: %w", filePath, err)
	}
	return data, nil
}

func parseConfig(data []byte, resultChan chan<- *Config, errChan chan<- error) {
	cfg := defaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		errChan <- fmt.Errorf("解析Config失败: %w", err)
		return
	}
	resultChan <- cfg
}

func parseDataConfig(data []byte, resultChan chan<- *DataConfig, errChan chan<- error) {
	dcfg := defaultDataConfig()
	if err := json.Unmarshal(data, dcfg); err != nil {
		errChan <- fmt.Errorf("解析DataConfig失败: %w", err)
		return
	}
	if err := dcfg.validate(); err != nil {
		errChan <- fmt.Errorf("DataConfig校验失败: %w", err)
		return
	}
	resultChan <- dcfg
}

func waitForResults(
	cfgChan <-chan *Config,
	dcfgChan <-chan *DataConfig,
	errChan <-chan error,
) (*Config, *DataConfig, error) {
	var (
		cfg    *Config
		dcfg   *DataConfig
		errors []error
	)

	for i := 0; i < 2; i++ {
		select {
		case c := <-cfgChan:
			cfg = c
		case d := <-dcfgChan:
			dcfg = d
		case err := <-errChan:
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return nil, nil, combineErrors(errors)
	}

	if cfg == nil || dcfg == nil {
		return nil, nil, fmt.Errorf("部分配置未加载成功")
	}

	return cfg, dcfg, nil
}

func combineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	msg := "配置加载遇到多个错误:"
	for _, err := range errs {
		msg = fmt.Sprintf("%s\n- %v", msg, err)
	}
	return fmt.Errorf("%s", msg)
}

// defaultConfig 未在 config.json 中出现的字段使用的默认值
func defaultConfig() *Config {
	cfg := &Config{
		BrandImage:       "brze.png",
		PidFile:          "dashboard.pid",
		LogName:          "app.log",
		LogMaxSize:       "10 * 1024 * 1024",
		LogCheckInterval: Duration(time.Minute),
	}
	cfg.Server.Addr = ":8080"
	cfg.Server.ReadTimeout = Duration(10 * time.Second)
	cfg.Server.WriteTimeout = Duration(60 * time.Second)
	cfg.Source.Path = "dataset/train.csv"
	cfg.Source.Encoding = "utf-8"
	cfg.Source.Strict = true
	cfg.Source.PollInterval = Duration(30 * time.Second)
	cfg.Notify.RetryTimes = 3
	cfg.Notify.RetryInterval = Duration(2 * time.Second)
	cfg.Notify.Cooldown = Duration(10 * time.Minute)
	return cfg
}

func defaultDataConfig() *DataConfig {
	return &DataConfig{
		Cities:            append([]string(nil), model.Cities...),
		WeatherConditions: append([]string(nil), model.WeatherConditions...),
		TrafficDensities:  append([]string(nil), model.TrafficDensities...),
		DefaultMaxDate:    Date(time.Date(2022, 4, 1, 0, 0, 0, 0, time.UTC)),
		MinDate:           Date(time.Date(2022, 2, 11, 0, 0, 0, 0, time.UTC)),
		MaxDate:           Date(time.Date(2022, 4, 6, 0, 0, 0, 0, time.UTC)),
		TopN:              10,
	}
}

func (dc *DataConfig) validate() error {
	if dc.TopN <= 0 {
		return fmt.Errorf("top_n 必须大于0, 当前为 %d", dc.TopN)
	}
	if dc.MinDate.Time().After(dc.MaxDate.Time()) {
		return fmt.Errorf("min_date %s 晚于 max_date %s", dc.MinDate, dc.MaxDate)
	}
	return nil
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON序列化和反序列化
type Duration time.Duration

// UnmarshalJSON 实现json.Unmarshaler接口
// 用于从JSON字符串解析Duration
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalJSON 实现json.Marshaler接口
// 用于将Duration序列化为JSON字符串
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// DateLayout 配置文件与查询参数中的日期格式
const DateLayout = "2006-01-02"

// Date 以 "2006-01-02" 形式序列化的日期(UTC零点)
type Date time.Time

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return err
	}
	*d = Date(t)
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d Date) Time() time.Time { return time.Time(d) }

func (d Date) String() string { return time.Time(d).Format(DateLayout) }

// GetCities 返回城市标签的副本(线程安全)
func (dc *DataConfig) GetCities() []string {
	mu.RLock()
	defer mu.RUnlock()
	return append([]string(nil), dc.Cities...)
}

// GetWeatherConditions 返回天气标签的副本(线程安全)
func (dc *DataConfig) GetWeatherConditions() []string {
	mu.RLock()
	defer mu.RUnlock()
	return append([]string(nil), dc.WeatherConditions...)
}

// GetTrafficDensities 返回交通密度标签的副本(线程安全)
func (dc *DataConfig) GetTrafficDensities() []string {
	mu.RLock()
	defer mu.RUnlock()
	return append([]string(nil), dc.TrafficDensities...)
}

func (dc *DataConfig) GetDefaultMaxDate() time.Time {
	mu.RLock()
	defer mu.RUnlock()
	return dc.DefaultMaxDate.Time()
}

// GetMinDate 数据集最早日期(线程安全)
func (dc *DataConfig) GetMinDate() Date {
	mu.RLock()
	defer mu.RUnlock()
	return dc.MinDate
}

// GetMaxDate 数据集最晚日期(线程安全)
func (dc *DataConfig) GetMaxDate() Date {
	mu.RLock()
	defer mu.RUnlock()
	return dc.MaxDate
}

func (dc *DataConfig) GetTopN() int {
	mu.RLock()
	defer mu.RUnlock()
	return dc.TopN
}
