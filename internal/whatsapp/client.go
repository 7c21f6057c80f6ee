package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"waba-integration/internal/credentials"
)

const messagingProduct = "whatsapp"

// CredentialSource supplies the token, API base and phone number id.
type CredentialSource interface {
	Credentials(ctx context.Context) (credentials.Credentials, error)
}

// APIError is a non-2xx provider response.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: %d - %s", e.StatusCode, e.Message)
}

// Client talks to the Graph API. It never retries: every failed call surfaces
// to the caller, and the http.Client timeout bounds each request.
type Client struct {
	creds CredentialSource
	http  *http.Client
}

func NewClient(creds CredentialSource, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{creds: creds, http: httpClient}
}

// --- Helper Functions ---

func (c *Client) sendRequest(ctx context.Context, method, url string, body interface{}, token string) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, token)
}

func (c *Client) do(req *http.Request, token string) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return respBody, newAPIError(resp, respBody)
	}

	return respBody, nil
}

func newAPIError(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: resp.Status, Body: body}
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Message != "" {
		apiErr.Message = env.Error.Message
	}
	return apiErr
}

// --- Messaging Methods ---

// SendMessage posts msg and returns the decoded and the raw provider response.
func (c *Client) SendMessage(ctx context.Context, msg GenericMessage) (*SendResponse, []byte, error) {
	creds, err := c.creds.Credentials(ctx)
	if err != nil {
		return nil, nil, err
	}
	if msg.MessagingProduct == "" {
		msg.MessagingProduct = messagingProduct
	}

	url := fmt.Sprintf("%s/%s/messages", creds.APIBase, creds.PhoneNumberID)
	raw, err := c.sendRequest(ctx, http.MethodPost, url, msg, creds.AccessToken)
	if err != nil {
		return nil, raw, err
	}

	var resp SendResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, raw, fmt.Errorf("decode send response: %w", err)
	}
	return &resp, raw, nil
}

// MarkAsRead sends a read receipt for an inbound message.
func (c *Client) MarkAsRead(ctx context.Context, providerMessageID string) error {
	creds, err := c.creds.Credentials(ctx)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/%s/messages", creds.APIBase, creds.PhoneNumberID)
	_, err = c.sendRequest(ctx, http.MethodPost, url, ReadReceipt{
		MessagingProduct: messagingProduct,
		Status:           "read",
		MessageID:        providerMessageID,
	}, creds.AccessToken)
	return err
}

// --- Media Methods ---

// UploadMedia streams content as a multipart upload and returns the media id.
func (c *Client) UploadMedia(ctx context.Context, content io.Reader, mimeType, filename string) (string, error) {
	creds, err := c.creds.Credentials(ctx)
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/%s/media", creds.APIBase, creds.PhoneNumberID)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", fmt.Errorf("failed to copy file content: %w", err)
	}

	if err := writer.WriteField("messaging_product", messagingProduct); err != nil {
		return "", err
	}
	if err := writer.WriteField("type", mimeType); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	respBody, err := c.do(req, creds.AccessToken)
	if err != nil {
		return "", err
	}

	var mediaResp MediaResponse
	if err := json.Unmarshal(respBody, &mediaResp); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if mediaResp.ID == "" {
		return "", fmt.Errorf("upload response has no media id")
	}
	return mediaResp.ID, nil
}

// RetrieveMediaURL resolves a media id to its short-lived download URL.
func (c *Client) RetrieveMediaURL(ctx context.Context, mediaID string) (*MediaURLResponse, error) {
	creds, err := c.creds.Credentials(ctx)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s", creds.APIBase, mediaID)
	resp, err := c.sendRequest(ctx, http.MethodGet, url, nil, creds.AccessToken)
	if err != nil {
		return nil, err
	}

	var obj MediaURLResponse
	if err := json.Unmarshal(resp, &obj); err != nil {
		return nil, fmt.Errorf("decode media url response: %w", err)
	}
	if obj.URL == "" {
		return nil, fmt.Errorf("media %s has no download url", mediaID)
	}
	return &obj, nil
}

// Download fetches the bytes behind a media URL; the URL needs the same bearer token.
func (c *Client) Download(ctx context.Context, url string) ([]byte, string, error) {
	creds, err := c.creds.Credentials(ctx)
	if err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", newAPIError(resp, content)
	}
	return content, resp.Header.Get("Content-Type"), nil
}
