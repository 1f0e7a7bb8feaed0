package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/nutribunda/mpasi-backend/internal/platform/logger"
)

const errorBodyCaptureLimit = 2048

// FileRef is a handle to a document held by the File API. State follows the
// API's lifecycle strings; only FileStateActive files are usable in prompts.
type FileRef struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	URI         string `json:"uri"`
	MIMEType    string `json:"mimeType"`
	State       string `json:"state"`
}

const (
	FileStateProcessing = "PROCESSING"
	FileStateActive     = "ACTIVE"
	FileStateFailed     = "FAILED"
)

func (f FileRef) Active() bool { return f.State == FileStateActive }

type Client interface {
	// GenerateJSON runs a JSON-mode generateContent call, optionally with a
	// File API attachment as a second part, and returns the raw response text.
	GenerateJSON(ctx context.Context, prompt string, attachment *FileRef) (string, error)
	UploadFile(ctx context.Context, displayName, mimeType string, content []byte) (FileRef, error)
	GetFile(ctx context.Context, name string) (FileRef, error)
	ListFiles(ctx context.Context) ([]FileRef, error)
	Model() string
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

func NewClient(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return &client{
		log:        log.With("service", "GeminiClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (c *client) Model() string { return c.cfg.Model }

type contentPart struct {
	Text     string    `json:"text,omitempty"`
	FileData *fileData `json:"file_data,omitempty"`
}

type fileData struct {
	FileURI  string `json:"file_uri"`
	MIMEType string `json:"mime_type,omitempty"`
}

type generateRequest struct {
	Contents []struct {
		Parts []contentPart `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		ResponseMIMEType string  `json:"response_mime_type"`
		Temperature      float64 `json:"temperature"`
	} `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

func (c *client) GenerateJSON(ctx context.Context, prompt string, attachment *FileRef) (string, error) {
	const op = "generate"
	if strings.TrimSpace(prompt) == "" {
		return "", opErr(op, OperationErrorValidation, "prompt required", nil)
	}

	parts := []contentPart{{Text: prompt}}
	if attachment != nil {
		if !attachment.Active() {
			return "", opErr(
				op,
				OperationErrorFileNotReady,
				fmt.Sprintf("attachment %s in state %s", attachment.Name, attachment.State),
				nil,
			)
		}
		parts = append(parts, contentPart{FileData: &fileData{
			FileURI:  attachment.URI,
			MIMEType: attachment.MIMEType,
		}})
	}

	var req generateRequest
	req.Contents = append(req.Contents, struct {
		Parts []contentPart `json:"parts"`
	}{Parts: parts})
	req.GenerationConfig.ResponseMIMEType = "application/json"
	req.GenerationConfig.Temperature = 0.3

	var resp generateResponse
	path := fmt.Sprintf("/v1beta/models/%s:generateContent", c.cfg.Model)
	if err := c.doJSON(ctx, op, http.MethodPost, path, req, &resp); err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 {
		msg := "response has no candidates"
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			msg = fmt.Sprintf("response blocked: %s", resp.PromptFeedback.BlockReason)
		}
		return "", opErr(op, OperationErrorBlockedResponse, msg, nil)
	}

	var text strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	if text.Len() == 0 {
		return "", opErr(op, OperationErrorBlockedResponse, "candidate has no text parts", nil)
	}
	return text.String(), nil
}

func (c *client) UploadFile(ctx context.Context, displayName, mimeType string, content []byte) (FileRef, error) {
	const op = "upload_file"
	if len(content) == 0 {
		return FileRef{}, opErr(op, OperationErrorValidation, "file content required", nil)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=utf-8")
	metaPart, err := mw.CreatePart(metaHeader)
	if err != nil {
		return FileRef{}, opErr(op, OperationErrorEncodeFailed, "", err)
	}
	meta := map[string]any{"file": map[string]any{"display_name": displayName}}
	if err := json.NewEncoder(metaPart).Encode(meta); err != nil {
		return FileRef{}, opErr(op, OperationErrorEncodeFailed, "", err)
	}

	fileHeader := textproto.MIMEHeader{}
	fileHeader.Set("Content-Type", mimeType)
	filePart, err := mw.CreatePart(fileHeader)
	if err != nil {
		return FileRef{}, opErr(op, OperationErrorEncodeFailed, "", err)
	}
	if _, err := filePart.Write(content); err != nil {
		return FileRef{}, opErr(op, OperationErrorEncodeFailed, "", err)
	}
	if err := mw.Close(); err != nil {
		return FileRef{}, opErr(op, OperationErrorEncodeFailed, "", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.cfg.BaseURL+"/upload/v1beta/files",
		&buf,
	)
	if err != nil {
		return FileRef{}, opErr(op, OperationErrorEncodeFailed, "", err)
	}
	req.Header.Set("Content-Type", "multipart/related; boundary="+mw.Boundary())
	req.Header.Set("X-Goog-Upload-Protocol", "multipart")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	var result struct {
		File FileRef `json:"file"`
	}
	if err := c.send(op, req, &result); err != nil {
		return FileRef{}, err
	}
	if result.File.Name == "" {
		return FileRef{}, opErr(op, OperationErrorDecodeFailed, "upload response missing file name", nil)
	}
	return result.File, nil
}

func (c *client) GetFile(ctx context.Context, name string) (FileRef, error) {
	const op = "get_file"
	name = strings.TrimSpace(name)
	if name == "" {
		return FileRef{}, opErr(op, OperationErrorValidation, "file name required", nil)
	}
	var ref FileRef
	if err := c.doJSON(ctx, op, http.MethodGet, "/v1beta/"+name, nil, &ref); err != nil {
		return FileRef{}, err
	}
	return ref, nil
}

func (c *client) ListFiles(ctx context.Context) ([]FileRef, error) {
	const op = "list_files"
	var result struct {
		Files []FileRef `json:"files"`
	}
	if err := c.doJSON(ctx, op, http.MethodGet, "/v1beta/files", nil, &result); err != nil {
		return nil, err
	}
	return result.Files, nil
}

func (c *client) doJSON(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return opErr(op, OperationErrorEncodeFailed, "", err)
		}
		reader = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return opErr(op, OperationErrorEncodeFailed, "", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	return c.send(op, req, out)
}

func (c *client) send(op string, req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyCaptureLimit))
		return &OperationError{
			Code:       OperationErrorRequestFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(raw)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "", err)
	}
	return nil
}

func classifyHTTPCallError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return opErr(op, OperationErrorTimeout, "", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return opErr(op, OperationErrorTimeout, "", err)
	}
	return opErr(op, OperationErrorTransportFailed, "", err)
}
