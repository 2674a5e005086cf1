package ocr

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync"

	"proofchest/pkg/config"

	"github.com/Role1776/gigago"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	gigaChatOAuthURL = "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"
	gigaChatBaseURL  = "https://gigachat.devices.sberbank.ru/api/v1"
)

var errUnauthorized = errors.New("gigachat: unauthorized")

// refusalPhrases mark replies where the model declined instead of transcribing.
var refusalPhrases = []string{
	"cannot help",
	"cannot process",
	"please provide",
	"не могу помочь",
	"не могу обработать",
	"не могу извлечь",
}

// GigaChatVision transcribes images by uploading them to GigaChat and asking
// a chat completion with the file attached.
type GigaChatVision struct {
	apiKey     string
	scope      string
	model      string
	oauthURL   string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	mu          sync.Mutex
	accessToken string
}

func NewGigaChatVision(cfg *config.GigaChatConfig, logger *zap.Logger) *GigaChatVision {
	httpClient := &http.Client{}
	if cfg.InsecureSkipVerify {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
		logger.Warn("HTTP client TLS certificate verification is disabled")
	}
	model := cfg.Model
	if model == "" {
		model = "GigaChat"
	}
	return &GigaChatVision{
		apiKey:     cfg.APIKey,
		scope:      cfg.Scope,
		model:      model,
		oauthURL:   gigaChatOAuthURL,
		baseURL:    gigaChatBaseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

func (g *GigaChatVision) Name() string { return "gigachat" }

func (g *GigaChatVision) Recognize(ctx context.Context, in Input) (Result, error) {
	in.report(StatusLoading, 0)

	fileID, err := g.withToken(ctx, func(token string) (string, error) {
		return g.uploadFile(ctx, token, in.Image, in.ContentType)
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to upload file: %w", err)
	}

	in.report(StatusRecognizing, 0)
	prompt := visionPrompt(in.Language)
	text, err := g.withToken(ctx, func(token string) (string, error) {
		return g.complete(ctx, token, fileID, prompt)
	})
	if err != nil {
		return Result{}, err
	}
	in.report(StatusRecognizing, 1)

	lower := strings.ToLower(text)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			g.logger.Warn("Model returned a refusal instead of text", zap.String("message", text))
			return Result{}, fmt.Errorf("model refused: %s", text)
		}
	}

	in.report(StatusDone, 1)
	return Result{Text: text, Engine: g.Name()}, nil
}

func visionPrompt(language string) string {
	return fmt.Sprintf(`Extract all text from this document image (receipt, form or certificate).
The document language hint is %q.
Return only the text visible in the image, with no comments.
If the text is unreadable, return an empty string.`, language)
}

// withToken runs call with a cached access token, refreshing it once on 401.
func (g *GigaChatVision) withToken(ctx context.Context, call func(token string) (string, error)) (string, error) {
	token, err := g.token(ctx, false)
	if err != nil {
		return "", err
	}
	out, err := call(token)
	if !errors.Is(err, errUnauthorized) {
		return out, err
	}
	token, err = g.token(ctx, true)
	if err != nil {
		return "", err
	}
	return call(token)
}

func (g *GigaChatVision) token(ctx context.Context, refresh bool) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.accessToken != "" && !refresh {
		return g.accessToken, nil
	}

	rqUID := uuid.New().String()
	form := url.Values{}
	form.Set("scope", g.scope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.oauthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create OAuth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("RqUID", rqUID)
	// the key is already Base64-encoded
	req.Header.Set("Authorization", "Basic "+g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to get access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		g.logger.Error("OAuth request failed",
			zap.Int("status", resp.StatusCode),
			zap.String("response", string(body)),
			zap.String("rq_uid", rqUID),
		)
		return "", fmt.Errorf("OAuth failed with status %d: %s", resp.StatusCode, string(body))
	}

	var oauthResp struct {
		AccessToken string `json:"access_token"`
		ExpiresAt   int64  `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&oauthResp); err != nil {
		return "", fmt.Errorf("failed to decode OAuth response: %w", err)
	}
	if oauthResp.AccessToken == "" {
		return "", errors.New("empty access token in OAuth response")
	}

	g.accessToken = oauthResp.AccessToken
	g.logger.Info("GigaChat access token obtained")
	return g.accessToken, nil
}

func (g *GigaChatVision) uploadFile(ctx context.Context, token string, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	// "general" lets the file be attached to completions
	if err := writer.WriteField("purpose", "general"); err != nil {
		return "", fmt.Errorf("failed to write purpose field: %w", err)
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", contentType)
	header.Set("Content-Disposition", `form-data; name="file"; filename="document`+extensionFor(contentType)+`"`)
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to copy file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/files", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return "", errUnauthorized
	case resp.StatusCode == http.StatusRequestEntityTooLarge:
		return "", errors.New("file too large (413)")
	case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated:
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(b))
	}

	var uploadResp struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploadResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	g.logger.Debug("File uploaded to GigaChat", zap.String("file_id", uploadResp.ID))
	return uploadResp.ID, nil
}

func (g *GigaChatVision) complete(ctx context.Context, token, fileID, prompt string) (string, error) {
	requestBody := map[string]interface{}{
		"model": g.model,
		"messages": []map[string]interface{}{
			{
				"role":        "user",
				"content":     prompt,
				"attachments": []string{fileID},
			},
		},
		"temperature": 0.1,
		"stream":      false,
	}
	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return "", errUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("vision API failed with status %d: %s", resp.StatusCode, string(b))
	}

	var visionResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&visionResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(visionResp.Choices) == 0 {
		return "", errors.New("no response from vision API")
	}
	return strings.TrimSpace(visionResp.Choices[0].Message.Content), nil
}

func extensionFor(contentType string) string {
	switch strings.ToLower(baseType(contentType)) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "application/pdf":
		return ".pdf"
	}
	return ""
}

// NewGigaChatClient opens the SDK client used by Refiner.
func NewGigaChatClient(ctx context.Context, cfg *config.GigaChatConfig, logger *zap.Logger) (*gigago.Client, error) {
	opts := []gigago.Option{
		gigago.WithCustomScope(cfg.Scope),
	}
	if cfg.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}
	client, err := gigago.NewClient(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GigaChat client: %w", err)
	}
	return client, nil
}
