package api

import (
	"GrowthDashboard/src/config"
	"GrowthDashboard/src/datasource/file"
	"GrowthDashboard/src/model"
	"GrowthDashboard/src/processor"
	"GrowthDashboard/src/storage"
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var testRows = []string{
	"0x4607 ,INDORES13DEL02 ,37,4.9,22.745049,75.892471,22.765049,75.912471,19-03-2022,conditions Sunny,High ,2,Snack ,motorcycle ,0,No ,Urban ,(min) 24",
	"0xb379 ,BANGRES18DEL02 ,34,4.5,12.913041,77.683237,13.043041,77.813237,25-03-2022,conditions Stormy,Jam ,2,Snack ,scooter ,1,No ,Metropolitian ,(min) 33",
	"0x5d6d ,BANGRES19DEL01 ,23,4.4,12.914264,77.6784,12.924264,77.6884,19-03-2022,conditions Sandstorms,Low ,0,Drinks ,motorcycle ,1,No ,Urban ,(min) 26",
	"0x7a6a ,COIMBRES13DEL02 ,38,4.7,11.003669,76.976494,11.053669,77.026494,05-04-2022,conditions Sunny,Medium ,0,Buffet ,motorcycle ,1,No ,Metropolitian ,(min) 21",
	"0x70a2 ,CHENRES12DEL01 ,NaN ,4.6,12.972793,80.249982,13.012793,80.289982,26-03-2022,conditions Cloudy,High ,1,Snack ,scooter ,NaN ,No ,Metropolitian ,(min) 30",
}

type fixture struct {
	router *gin.Engine
	logger *storage.Logger
	logs   *bytes.Buffer
	pipe   *processor.Pipeline
	dir    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	source := filepath.Join(dir, "train.csv")
	content := strings.Join(append([]string{strings.Join(model.RequiredColumns, ",")}, testRows...), "\n") + "\n"
	require.NoError(t, os.WriteFile(source, []byte(content), 0644))

	logs := &bytes.Buffer{}
	logger := storage.NewWriterLogger(logs)
	pipe := processor.NewPipeline(source, file.ReadOptions{}, &processor.Cleaner{Strict: true, Logger: logger}, logger, 10)

	dcfg := &config.DataConfig{
		Cities:            model.Cities,
		WeatherConditions: model.WeatherConditions,
		TrafficDensities:  model.TrafficDensities,
		DefaultMaxDate:    config.Date(time.Date(2022, 4, 1, 0, 0, 0, 0, time.UTC)),
		MinDate:           config.Date(time.Date(2022, 2, 11, 0, 0, 0, 0, time.UTC)),
		MaxDate:           config.Date(time.Date(2022, 4, 6, 0, 0, 0, 0, time.UTC)),
		TopN:              10,
	}

	h := NewHandler(pipe, dcfg, logger, filepath.Join(dir, "brze.png"))
	return &fixture{router: SetupRouter(h), logger: logger, logs: logs, pipe: pipe, dir: dir}
}

func (f *fixture) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	f.router.ServeHTTP(w, req)
	return w
}

// decode 解出统一返回结构，data 解到 out
func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) Response {
	t.Helper()
	var raw struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw), w.Body.String())
	if out != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, out))
	}
	return Response{Code: raw.Code, Message: raw.Message}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var data map[string]interface{}
	resp := decode(t, w, &data)
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, "ok", data["status"])
	assert.Equal(t, false, data["loaded"])
}

func TestFilters(t *testing.T) {
	f := newFixture(t)

	var data struct {
		Cities         []string `json:"cities"`
		DefaultMaxDate string   `json:"default_max_date"`
		MinDate        string   `json:"min_date"`
		MaxDate        string   `json:"max_date"`
		TopN           int      `json:"top_n"`
	}
	decode(t, f.do(t, http.MethodGet, "/api/v1/filters"), &data)

	assert.Equal(t, model.Cities, data.Cities)
	assert.Equal(t, "2022-04-01", data.DefaultMaxDate)
	assert.Equal(t, "2022-02-11", data.MinDate)
	assert.Equal(t, "2022-04-06", data.MaxDate)
	assert.Equal(t, 10, data.TopN)
}

func TestCompanyViewDefaultFilter(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/views/company")
	require.Equal(t, http.StatusOK, w.Code)

	var view struct {
		Rows         int `json:"rows"`
		OrdersPerDay []struct {
			Date  string `json:"date"`
			Count int    `json:"count"`
		} `json:"orders_per_day"`
	}
	decode(t, w, &view)

	// 缺失值行被清洗掉，2022-04-05 的订单被默认截止日期排除
	assert.Equal(t, 3, view.Rows)
	require.Len(t, view.OrdersPerDay, 2)
	assert.Equal(t, "2022-03-19", view.OrdersPerDay[0].Date)
	assert.Equal(t, 2, view.OrdersPerDay[0].Count)
}

func TestViewQueryParameters(t *testing.T) {
	f := newFixture(t)

	rows := func(target string) int {
		var view struct {
			Rows int `json:"rows"`
		}
		w := f.do(t, http.MethodGet, target)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		decode(t, w, &view)
		return view.Rows
	}

	assert.Equal(t, 4, rows("/api/v1/views/deliverers?max_date=2022-04-06"))
	assert.Equal(t, 2, rows("/api/v1/views/deliverers?city=Urban"))
	assert.Equal(t, 3, rows("/api/v1/views/deliverers?city=Urban&city=Metropolitian"))
	assert.Equal(t, 1, rows("/api/v1/views/restaurants?traffic=Jam"))
	assert.Equal(t, 1, rows("/api/v1/views/restaurants?weather=conditions+Sandstorms"))
	// 参数出现但为空表示空集合
	assert.Equal(t, 0, rows("/api/v1/views/company?city="))
	assert.Equal(t, 0, rows("/api/v1/views/company?city=Atlantis"))
}

func TestViewErrors(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/views/company?max_date=01-04-2022")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, http.StatusBadRequest, decode(t, w, nil).Code)

	w = f.do(t, http.MethodGet, "/api/v1/views/customers")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/api/v2/anything")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPipelineFailureIsInternalError(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.Remove(f.pipe.Path()))

	w := f.do(t, http.MethodGet, "/api/v1/views/company")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, decode(t, w, nil).Message, processor.ErrSourceLoad.Error())

	var data map[string]interface{}
	decode(t, f.do(t, http.MethodGet, "/health"), &data)
	assert.Equal(t, "degraded", data["status"])
	assert.Contains(t, f.logs.String(), "ERROR")
}

func TestOrdersPaging(t *testing.T) {
	f := newFixture(t)

	var page struct {
		Total  int           `json:"total"`
		Offset int           `json:"offset"`
		Limit  int           `json:"limit"`
		Orders []model.Order `json:"orders"`
	}
	w := f.do(t, http.MethodGet, "/api/v1/orders?limit=2&offset=1")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &page)

	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 1, page.Offset)
	require.Len(t, page.Orders, 2)
	assert.Equal(t, "0xb379", page.Orders[0].ID)
	assert.Equal(t, "Metropolitian", page.Orders[0].City)

	decode(t, f.do(t, http.MethodGet, "/api/v1/orders?offset=10"), &page)
	assert.Empty(t, page.Orders)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/v1/orders?limit=0").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/v1/orders?offset=-1").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/v1/orders?limit=abc").Code)
}

func TestExportWorkbook(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/export/restaurants?rows=true")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "restaurants_20220401.xlsx")

	book, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer book.Close()

	sheets := book.GetSheetList()
	assert.Contains(t, sheets, "festival")
	assert.Contains(t, sheets, "orders")

	rows, err := book.GetRows("orders")
	require.NoError(t, err)
	assert.Len(t, rows, 4, "表头加三行数据")

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/v1/export/customers").Code)
}

func TestReloadInvalidatesCache(t *testing.T) {
	f := newFixture(t)

	f.do(t, http.MethodGet, "/api/v1/views/company")
	require.True(t, f.pipe.Loaded())

	w := f.do(t, http.MethodPost, "/api/v1/reload")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, f.pipe.Loaded())
}

func TestBrand(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/brand").Code)

	png := []byte("\x89PNG\r\n\x1a\n")
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "brze.png"), png, 0644))

	w := f.do(t, http.MethodGet, "/brand")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, png, w.Body.Bytes())
}

func TestRequestsAreLogged(t *testing.T) {
	f := newFixture(t)

	f.do(t, http.MethodGet, "/health")
	f.do(t, http.MethodGet, "/api/v1/orders?limit=0")

	out := f.logs.String()
	assert.Contains(t, out, "INFO: [GET] /health")
	assert.Contains(t, out, "WARNING: [GET] /api/v1/orders?limit=0")
}

func TestLogsStream(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/logs")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// 订阅建立前的消息会丢失，持续写入直到读到
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				f.logger.Info("stream-check")
			}
		}
	}()

	lines := make(chan string, 1)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if strings.Contains(scanner.Text(), "stream-check") {
				lines <- scanner.Text()
				return
			}
		}
	}()

	select {
	case line := <-lines:
		assert.Contains(t, line, "INFO: stream-check")
	case <-time.After(5 * time.Second):
		t.Fatal("没有收到日志流")
	}
}
