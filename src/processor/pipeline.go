package processor

import (
	"GrowthDashboard/src/datasource/file"
	"GrowthDashboard/src/model"
	"GrowthDashboard/src/storage"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-gota/gota/dataframe"
)

// ErrSourceLoad 读取或清洗数据源失败，可与 MalformedFieldError 一起用 errors.Is/As 区分
var ErrSourceLoad = errors.New("加载数据源失败")

// Pipeline 进程内共享的清洗结果缓存
// 首次访问时读取并清洗数据源，之后直到 Invalidate 前都复用同一张表
type Pipeline struct {
	path    string
	opts    file.ReadOptions
	cleaner *Cleaner
	logger  *storage.Logger
	topN    int
	onFail  func(error)

	mu      sync.RWMutex // 保护以下字段
	table   *model.Table
	report  CleanReport
	modTime time.Time
	loadErr error
}

// NewPipeline logger 可为 nil；cleaner 为 nil 时使用严格模式
func NewPipeline(path string, opts file.ReadOptions, cleaner *Cleaner, logger *storage.Logger, topN int) *Pipeline {
	if cleaner == nil {
		cleaner = &Cleaner{Strict: true, Logger: logger}
	}
	return &Pipeline{
		path:    path,
		opts:    opts,
		cleaner: cleaner,
		logger:  logger,
		topN:    topN,
	}
}

// OnFailure 加载失败时异步回调 fn，用于推送告警
func (p *Pipeline) OnFailure(fn func(error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onFail = fn
}

// Path 数据源路径
func (p *Pipeline) Path() string { return p.path }

// Table 返回清洗后的订单表，失败的结果不缓存，下次访问会重试
func (p *Pipeline) Table() (*model.Table, error) {
	p.mu.RLock()
	if p.table != nil {
		t := p.table
		p.mu.RUnlock()
		return t, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	// 等锁期间可能已被其他请求加载
	if p.table != nil {
		return p.table, nil
	}

	t1 := time.Now()
	modTime := sourceModTime(p.path)

	df, err := file.ReadSource(p.path, p.opts)
	if err != nil {
		return nil, p.fail(err)
	}

	t, report, err := p.cleaner.Clean(df)
	if err != nil {
		return nil, p.fail(err)
	}

	p.table, p.report, p.modTime, p.loadErr = t, report, modTime, nil
	p.logf("数据源 %s 加载完成: 原始 %d 行, 准入 %d 行, 跳过 %d 行, 输出 %d 行, 耗时 %v",
		p.path, report.Input, report.Admitted, report.Skipped, report.Output, time.Since(t1))
	return t, nil
}

func (p *Pipeline) fail(err error) error {
	err = fmt.Errorf("%w: %w", ErrSourceLoad, err)
	p.loadErr = err
	if p.logger != nil {
		p.logger.Error(err.Error())
	}
	if p.onFail != nil {
		go p.onFail(err)
	}
	return err
}

func (p *Pipeline) logf(format string, args ...any) {
	if p.logger != nil {
		p.logger.Infof(format, args...)
	}
}

// Report 最近一次成功加载的清洗统计
func (p *Pipeline) Report() CleanReport {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.report
}

// LastError 最近一次加载失败的错误，成功加载后清空
func (p *Pipeline) LastError() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loadErr
}

// Loaded 缓存中是否已有数据
func (p *Pipeline) Loaded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.table != nil
}

// Invalidate 丢弃缓存，下次访问重新读取数据源
func (p *Pipeline) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.table != nil {
		p.logf("数据源 %s 缓存已失效", p.path)
	}
	p.table = nil
	p.report = CleanReport{}
	p.modTime = time.Time{}
}

// CheckSource 数据源修改时间与加载时不一致则使缓存失效，返回是否失效
func (p *Pipeline) CheckSource() bool {
	p.mu.RLock()
	loaded, modTime := p.table != nil, p.modTime
	p.mu.RUnlock()

	if !loaded {
		return false
	}
	if current := sourceModTime(p.path); current.Equal(modTime) {
		return false
	}
	p.Invalidate()
	return true
}

func sourceModTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// Run 返回按 spec 筛选后的订单表
func (p *Pipeline) Run(spec FilterSpec) (*model.Table, error) {
	t, err := p.Table()
	if err != nil {
		return nil, err
	}
	return Apply(t, spec), nil
}

// View 三个视角共用同一条流水线，只是选用的聚合不同
func (p *Pipeline) View(name ViewName, spec FilterSpec) (View, error) {
	t, err := p.Run(spec)
	if err != nil {
		return nil, err
	}

	switch name {
	case ViewCompany:
		return BuildCompanyView(t, spec), nil
	case ViewDeliverers:
		return BuildDelivererView(t, spec, p.topN), nil
	case ViewRestaurants:
		return BuildRestaurantView(t, spec), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownView, name)
	}
}

// Frame 筛选后的行级数据，供导出使用
func (p *Pipeline) Frame(spec FilterSpec) (dataframe.DataFrame, error) {
	t, err := p.Run(spec)
	if err != nil {
		return dataframe.New(), err
	}
	return OrdersFrame(t), nil
}
