package api

import (
	"GrowthDashboard/src/config"
	"GrowthDashboard/src/processor"
	"GrowthDashboard/src/storage"
	"GrowthDashboard/src/utils"
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// 行级数据分页
const (
	defaultLimit = 100
	maxLimit     = 1000
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// 查询参数名，集合参数可重复出现
const (
	paramMaxDate = "max_date"
	paramCity    = "city"
	paramWeather = "weather"
	paramTraffic = "traffic"
)

// Handler 展示层接口，只转发到共享流水线，不做任何聚合
type Handler struct {
	pipeline   *processor.Pipeline
	dcfg       *config.DataConfig
	logger     *storage.Logger
	brandImage string
}

func NewHandler(pipeline *processor.Pipeline, dcfg *config.DataConfig, logger *storage.Logger, brandImage string) *Handler {
	return &Handler{
		pipeline:   pipeline,
		dcfg:       dcfg,
		logger:     logger,
		brandImage: brandImage,
	}
}

// Health GET /health
func (h *Handler) Health(c *gin.Context) {
	status := gin.H{
		"status": "ok",
		"source": h.pipeline.Path(),
		"loaded": h.pipeline.Loaded(),
		"report": h.pipeline.Report(),
	}
	if err := h.pipeline.LastError(); err != nil {
		status["status"] = "degraded"
		status["last_error"] = err.Error()
	}
	Success(c, status)
}

// Filters GET /api/v1/filters 可选标签与日期范围
func (h *Handler) Filters(c *gin.Context) {
	Success(c, gin.H{
		"cities":             h.dcfg.GetCities(),
		"weather_conditions": h.dcfg.GetWeatherConditions(),
		"traffic_densities":  h.dcfg.GetTrafficDensities(),
		"min_date":           h.dcfg.GetMinDate(),
		"max_date":           h.dcfg.GetMaxDate(),
		"default_max_date":   config.Date(h.dcfg.GetDefaultMaxDate()),
		"top_n":              h.dcfg.GetTopN(),
	})
}

// View GET /api/v1/views/:view
func (h *Handler) View(c *gin.Context) {
	name, err := processor.ParseViewName(c.Param("view"))
	if err != nil {
		NotFound(c, err.Error())
		return
	}

	spec, err := h.filterSpec(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	view, err := h.pipeline.View(name, spec)
	if err != nil {
		h.pipelineError(c, err)
		return
	}
	Success(c, view)
}

// Orders GET /api/v1/orders 筛选后的行级数据
func (h *Handler) Orders(c *gin.Context) {
	spec, err := h.filterSpec(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	limit, err := intQuery(c, "limit", defaultLimit)
	if err != nil || limit <= 0 || limit > maxLimit {
		BadRequest(c, fmt.Sprintf("limit 必须在 1 到 %d 之间", maxLimit))
		return
	}
	offset, err := intQuery(c, "offset", 0)
	if err != nil || offset < 0 {
		BadRequest(c, "offset 必须为非负整数")
		return
	}

	table, err := h.pipeline.Run(spec)
	if err != nil {
		h.pipelineError(c, err)
		return
	}

	orders := table.Orders()
	total := len(orders)
	start := min(offset, total)
	end := min(start+limit, total)

	Success(c, gin.H{
		"filter": spec,
		"total":  total,
		"offset": offset,
		"limit":  limit,
		"orders": orders[start:end],
	})
}

// Export GET /api/v1/export/:view 生成 xlsx 直接返回，不在服务端保存
// rows=true 时附带筛选后的行级数据
func (h *Handler) Export(c *gin.Context) {
	name, err := processor.ParseViewName(c.Param("view"))
	if err != nil {
		NotFound(c, err.Error())
		return
	}

	spec, err := h.filterSpec(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	view, err := h.pipeline.View(name, spec)
	if err != nil {
		h.pipelineError(c, err)
		return
	}
	sheets := view.Sheets()

	if withRows, _ := strconv.ParseBool(c.Query("rows")); withRows {
		df, err := h.pipeline.Frame(spec)
		if err != nil {
			h.pipelineError(c, err)
			return
		}
		sheets = append(sheets, utils.FrameSheet("orders", df))
	}

	var buf bytes.Buffer
	if err := utils.WriteWorkbook(&buf, sheets); err != nil {
		InternalError(c, err.Error())
		return
	}

	filename := fmt.Sprintf("%s_%s.xlsx", name, spec.MaxDate.Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// Reload POST /api/v1/reload 丢弃缓存，下次请求重新读取数据源
func (h *Handler) Reload(c *gin.Context) {
	h.pipeline.Invalidate()
	h.logger.Info("收到手动刷新请求，缓存已清空")
	Success(c, gin.H{"invalidated": true})
}

// Brand GET /brand 品牌图片
func (h *Handler) Brand(c *gin.Context) {
	if _, err := os.Stat(h.brandImage); err != nil {
		NotFound(c, "品牌图片不存在")
		return
	}
	c.File(h.brandImage)
}

// Logs GET /logs 实时日志，客户端断开后退出
func (h *Handler) Logs(c *gin.Context) {
	c.Header("Content-Type", "text/plain; charset=utf-8")
	logChan, cancel := h.logger.Subscribe()
	defer cancel()

	// 先把响应头发出去，客户端才能开始读
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case msg, ok := <-logChan:
			if !ok {
				return
			}
			if _, err := fmt.Fprint(c.Writer, msg); err != nil {
				return
			}
			c.Writer.Flush()
		case <-ctx.Done():
			return
		}
	}
}

func (h *Handler) pipelineError(c *gin.Context, err error) {
	_ = c.Error(err)
	if errors.Is(err, processor.ErrUnknownView) {
		NotFound(c, err.Error())
		return
	}
	InternalError(c, err.Error())
}

// filterSpec 从查询参数构造筛选条件
// 参数缺省时取全部标签；参数出现但为空(city=)表示空集合
func (h *Handler) filterSpec(c *gin.Context) (processor.FilterSpec, error) {
	spec := processor.DefaultFilterSpec(h.dcfg)

	if raw, ok := c.GetQuery(paramMaxDate); ok {
		d, err := time.Parse(config.DateLayout, raw)
		if err != nil {
			return spec, fmt.Errorf("%s 格式应为 %s: %q", paramMaxDate, config.DateLayout, raw)
		}
		spec.MaxDate = d
	}

	if values, ok := c.GetQueryArray(paramCity); ok {
		spec.Cities = nonEmpty(values)
	}
	if values, ok := c.GetQueryArray(paramWeather); ok {
		spec.WeatherConditions = nonEmpty(values)
	}
	if values, ok := c.GetQueryArray(paramTraffic); ok {
		spec.TrafficDensities = nonEmpty(values)
	}
	return spec, nil
}

func nonEmpty(values []string) []string {
	out := []string{}
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func intQuery(c *gin.Context, key string, fallback int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
