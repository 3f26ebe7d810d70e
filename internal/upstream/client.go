package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/dee-sakwe/course-reg-system-dsa/config"
	"github.com/dee-sakwe/course-reg-system-dsa/internal/model"
)

// maxErrorBody 错误响应体读取上限
const maxErrorBody = 64 << 10

// Error 上游返回的非 2xx 响应
type Error struct {
	Status  int
	Message string
	// Missing 选课被拒时上游给出的缺失先修课
	Missing []string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream: HTTP %d", e.Status)
	}
	return fmt.Sprintf("upstream: HTTP %d: %s", e.Status, e.Message)
}

// IsClientError 上游认定请求本身有误（4xx）
func (e *Error) IsClientError() bool {
	return e.Status >= 400 && e.Status < 500
}

// ── 令牌透传 ──

type tokenKey struct{}

// WithBearerToken 将调用方的访问令牌附加到 ctx，请求上游时原样透传
func WithBearerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// BearerToken 取出 WithBearerToken 附加的令牌
func BearerToken(ctx context.Context) string {
	tok, _ := ctx.Value(tokenKey{}).(string)
	return tok
}

// Client 远端选课 API 客户端
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient 创建上游客户端
func NewClient(cfg *config.UpstreamConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

// ── 查询 ──

// FetchAllCourses GET /courses
func (c *Client) FetchAllCourses(ctx context.Context) ([]model.Course, error) {
	var courses []model.Course
	if err := c.do(ctx, http.MethodGet, "/courses", nil, nil, &courses); err != nil {
		return nil, fmt.Errorf("获取课程目录: %w", err)
	}
	return courses, nil
}

// FetchStudentCourses GET /students/{id}/courses
func (c *Client) FetchStudentCourses(ctx context.Context, studentID int) (model.StudentCourses, error) {
	var out model.StudentCourses
	path := "/students/" + strconv.Itoa(studentID) + "/courses"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return model.StudentCourses{}, fmt.Errorf("获取学生已选课程: %w", err)
	}
	return out, nil
}

// FetchEligibility GET /students/{id}/eligibility
func (c *Client) FetchEligibility(ctx context.Context, studentID int, includeFull, includeAdvisory bool) ([]model.Eligibility, error) {
	q := url.Values{}
	q.Set("include_full", strconv.FormatBool(includeFull))
	q.Set("include_advisory", strconv.FormatBool(includeAdvisory))

	var out []model.Eligibility
	path := "/students/" + strconv.Itoa(studentID) + "/eligibility"
	if err := c.do(ctx, http.MethodGet, path, q, nil, &out); err != nil {
		return nil, fmt.Errorf("获取先修资格: %w", err)
	}
	return out, nil
}

// ── 变更 ──

type enrollRequest struct {
	StudentID int `json:"student_id"`
	CourseID  int `json:"course_id"`
}

// Enroll POST /enrollments
func (c *Client) Enroll(ctx context.Context, studentID, courseID int) error {
	body := enrollRequest{StudentID: studentID, CourseID: courseID}
	if err := c.do(ctx, http.MethodPost, "/enrollments", nil, body, nil); err != nil {
		return fmt.Errorf("提交选课: %w", err)
	}
	return nil
}

// Drop DELETE /enrollments/{id}
func (c *Client) Drop(ctx context.Context, enrollmentID int) error {
	if err := c.do(ctx, http.MethodDelete, "/enrollments/"+strconv.Itoa(enrollmentID), nil, nil, nil); err != nil {
		return fmt.Errorf("退课: %w", err)
	}
	return nil
}

// ── 传输 ──

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("编码请求失败: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := BearerToken(ctx); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("上游请求失败",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		uerr := decodeError(resp)
		c.logger.Warn("上游返回错误",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", uerr.Message),
		)
		return uerr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("解码上游响应失败: %w", err)
	}
	return nil
}

type errorBody struct {
	Message string   `json:"message"`
	Error   string   `json:"error"`
	Missing []string `json:"missing"`
}

func decodeError(resp *http.Response) *Error {
	uerr := &Error{Status: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return uerr
	}

	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err != nil {
		uerr.Message = strings.TrimSpace(string(raw))
		return uerr
	}
	uerr.Message = eb.Message
	if uerr.Message == "" {
		uerr.Message = eb.Error
	}
	uerr.Missing = eb.Missing
	return uerr
}

// AsError 提取 *Error
func AsError(err error) (*Error, bool) {
	var uerr *Error
	if errors.As(err, &uerr) {
		return uerr, true
	}
	return nil, false
}
