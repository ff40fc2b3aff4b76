package harness

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/multitest/report-harness/framework"
	"github.com/multitest/report-harness/framework/helpers"
	"github.com/multitest/report-harness/report"
	"github.com/multitest/report-harness/servicedef"
	"github.com/multitest/report-harness/serviceinfo"
)

const statusQueryInterval = time.Millisecond * 100

// Client is how a worker talks to a coordinator service.
//
// NewClient verifies that the coordinator is alive before returning, so that workers started
// at the same time as the coordinator can wait for it. After that, a worker submits each
// partial report it produces with SubmitPartial.
type Client struct {
	baseURL         string
	coordinatorInfo serviceinfo.CoordinatorInfo
	httpClient      *http.Client
	logger          framework.Logger
}

// NewClient creates a Client, and queries the coordinator's status resource until it responds
// or the timeout elapses. Progress is written to output.
func NewClient(
	baseURL string,
	statusQueryTimeout time.Duration,
	debugLogger framework.Logger,
	output io.Writer,
) (*Client, error) {
	if debugLogger == nil {
		debugLogger = framework.NullLogger()
	}
	if output == nil {
		output = io.Discard
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     debugLogger,
	}
	info, err := c.queryCoordinatorInfo(statusQueryTimeout, output)
	if err != nil {
		return nil, err
	}
	c.coordinatorInfo = info
	return c, nil
}

// CoordinatorInfo returns the status information received when the client was created.
func (c *Client) CoordinatorInfo() serviceinfo.CoordinatorInfo {
	return c.coordinatorInfo
}

func (c *Client) queryCoordinatorInfo(timeout time.Duration, output io.Writer) (serviceinfo.CoordinatorInfo, error) {
	helpers.MustFprintf(output, "Connecting to coordinator at %s", c.baseURL)

	deadline := time.Now().Add(timeout)
	for {
		helpers.MustFprintf(output, ".")
		respData, _, err := c.doRequest("GET", c.baseURL, nil, nil)
		if err == nil {
			helpers.MustFprintln(output)
			c.logger.Printf("Status query returned metadata: %s", string(respData))
			var base serviceinfo.CoordinatorInfoBase
			if err := json.Unmarshal(respData, &base); err != nil {
				return serviceinfo.Empty(), fmt.Errorf("malformed status response from coordinator: %s", string(respData))
			}
			return serviceinfo.CoordinatorInfo{CoordinatorInfoBase: base, FullData: respData}, nil
		}
		var se *StatusError
		if errors.As(err, &se) {
			helpers.MustFprintln(output)
			return serviceinfo.Empty(), err
		}
		if !time.Now().Before(deadline) {
			helpers.MustFprintln(output)
			return serviceinfo.Empty(), fmt.Errorf("timed out, result of last query was: %w", err)
		}
		time.Sleep(statusQueryInterval)
	}
}

// SubmitPartial sends a partial report to the coordinator and returns the URL of the stored
// partial. A partial that was stored but could not be merged returns both the URL and an
// error.
func (c *Client) SubmitPartial(partial *report.Report, source string) (string, error) {
	data, err := json.Marshal(partial)
	if err != nil {
		return "", err
	}
	var headers http.Header
	if source != "" {
		headers = http.Header{servicedef.HeaderSource: []string{source}}
	}
	c.logger.Printf("Submitting partial report (%d bytes)", len(data))
	_, respHeaders, err := c.doRequest("POST", c.baseURL+servicedef.PathPartials, data, headers)
	location := ""
	if respHeaders != nil {
		if location = respHeaders.Get("Location"); location != "" && !strings.HasPrefix(location, "http") {
			location = c.baseURL + location
		}
	}
	if err == nil && location == "" {
		return "", errors.New("coordinator did not return a Location header with a resource URL")
	}
	return location, err
}

// FetchReport returns the coordinator's merged report as it is now.
func (c *Client) FetchReport() (*report.Report, error) {
	data, _, err := c.doRequest("GET", c.baseURL+servicedef.PathReport, nil, nil)
	if err != nil {
		return nil, err
	}
	return report.Parse(data)
}

// Reset tells the coordinator to discard everything it has merged.
func (c *Client) Reset() error {
	_, _, err := c.doRequest("DELETE", c.baseURL+servicedef.PathPartials, nil, nil)
	return err
}

// StopService tells the coordinator that it should exit.
func (c *Client) StopService() error {
	req, _ := http.NewRequest("DELETE", c.baseURL, nil)
	resp, err := c.httpClient.Do(req)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err == nil && resp.StatusCode >= 300 {
		return fmt.Errorf("service returned HTTP %d", resp.StatusCode)
	}
	// It's normal for the request to return an I/O error if the service immediately quit before sending a response
	return nil
}

// StatusError is returned for a response with a non-2xx status.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	// Message is the error reported by the coordinator, if any.
	Message string
	// Path locates the conflicting node for a rejected partial.
	Path string
}

func (e *StatusError) Error() string {
	message := ""
	if e.Message != "" {
		message = " (" + e.Message + ")"
	}
	return fmt.Sprintf("coordinator returned error %d for %s %s%s", e.StatusCode, e.Method, e.URL, message)
}

func (c *Client) doRequest(method, url string, body []byte, headers http.Header) ([]byte, http.Header, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewBuffer(body)
	}
	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, nil, err
	}
	if body != nil {
		req.Header.Add("Content-Type", "application/json")
	}
	for k, vv := range headers {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	var respBody []byte
	if resp.Body != nil {
		respBody, _ = io.ReadAll(resp.Body)
		_ = resp.Body.Close()
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Method: method, URL: url, StatusCode: resp.StatusCode}
		var er servicedef.ErrorResponse
		if json.Unmarshal(respBody, &er) == nil {
			se.Message, se.Path = er.Error, er.Path
		}
		err = se
	}
	return respBody, resp.Header, err
}
