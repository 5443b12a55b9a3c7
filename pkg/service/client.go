package service

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/canarysec/canary-scanner/pkg/errors"
	"github.com/canarysec/canary-scanner/pkg/logg"
)

// Client talks to a remote validation service. Used when the scanner
// delegates validation instead of running the dispatcher in-process.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        logg.Logg
}

func NewClient(baseURL, apiKey string, log logg.Logg) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

func (c *Client) Submit(secretType, secretValue string, jobContext map[string]string) (jobID string, err error) {
	body, err := json.Marshal(ValidateRequest{
		SecretType:  secretType,
		SecretValue: secretValue,
		Context:     jobContext,
	})
	if err != nil {
		err = errors.Wrap(err, "unable to encode validation request")
		return
	}

	var resp ValidateResponse
	if err = c.do(http.MethodPost, submitPath, bytes.NewReader(body), http.StatusAccepted, &resp); err != nil {
		err = errors.WithMessage(err, "validation submission failed")
		return
	}

	jobID = resp.JobID
	return
}

func (c *Client) Status(jobID string) (result *StatusResponse, err error) {
	var resp StatusResponse
	if err = c.do(http.MethodGet, statusPath+jobID, nil, http.StatusOK, &resp); err != nil {
		err = errors.WithMessagev(err, "status check failed", jobID)
		return
	}

	result = &resp
	return
}

func (c *Client) Health() (err error) {
	return c.do(http.MethodGet, healthPath, nil, http.StatusOK, nil)
}

func (c *Client) do(method, path string, body *bytes.Reader, wantStatus int, out interface{}) (err error) {
	var req *http.Request
	if body != nil {
		req, err = http.NewRequest(method, c.baseURL+path, body)
	} else {
		req, err = http.NewRequest(method, c.baseURL+path, nil)
	}
	if err != nil {
		err = errors.Wrap(err, "unable to build request")
		return
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)

	var resp *http.Response
	resp, err = c.httpClient.Do(req)
	if err != nil {
		err = errors.Wrap(err, "request failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		var errResp errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error != "" {
			err = errors.Errorv("unexpected response", resp.Status, errResp.Error)
		} else {
			err = errors.Errorv("unexpected response", resp.Status)
		}
		return
	}

	if out != nil {
		if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
			err = errors.Wrap(err, "unable to decode response")
		}
	}

	return
}
