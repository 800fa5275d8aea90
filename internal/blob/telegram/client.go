// Package telegram implements blob.Store over the Telegram Bot API.
//
// Blobs are documents sent to a chat: the message id deletes them and the
// document file_id fetches them.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"tgdrive/internal/blob"
	"tgdrive/internal/domain"
)

// DefaultAPIURL is the public Bot API endpoint
const DefaultAPIURL = "https://api.telegram.org"

const probeText = "tgdrive connected. Files you upload will be stored in this chat."

// Options configures every client built by a factory
type Options struct {
	APIURL        string
	Timeout       time.Duration // per HTTP call, 0 = none
	RatePerSecond float64       // 0 = unlimited
	Burst         int
	HTTPClient    *http.Client // optional, tests inject httptest clients
}

// Client is a Bot API client bound to one bot token
type Client struct {
	resty   *resty.Client
	apiURL  string
	token   string
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewFactory returns a blob.Factory building one Client per token
func NewFactory(opts Options, logger *slog.Logger) blob.Factory {
	return func(token string) (blob.Store, error) {
		return New(token, opts, logger), nil
	}
}

// New creates a client. Calls are never retried.
func New(token string, opts Options, logger *slog.Logger) *Client {
	apiURL := strings.TrimRight(opts.APIURL, "/")
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}

	var r *resty.Client
	if opts.HTTPClient != nil {
		r = resty.NewWithClient(opts.HTTPClient)
	} else {
		r = resty.New()
	}
	r.SetBaseURL(apiURL).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
	if opts.Timeout > 0 {
		r.SetTimeout(opts.Timeout)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}

	return &Client{
		resty:   r,
		apiURL:  apiURL,
		token:   token,
		limiter: limiter,
		logger:  logger,
	}
}

// apiResponse is the envelope of every Bot API method
type apiResponse[T any] struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Result      T      `json:"result"`
}

type fileRef struct {
	FileID   string `json:"file_id"`
	FileSize int64  `json:"file_size"`
}

type message struct {
	MessageID int64     `json:"message_id"`
	Document  *fileRef  `json:"document"`
	Video     *fileRef  `json:"video"`
	Audio     *fileRef  `json:"audio"`
	Photo     []fileRef `json:"photo"`
}

// blobRef picks the handle of whatever media type Telegram stored the upload as
func (m *message) blobRef() string {
	switch {
	case m.Document != nil:
		return m.Document.FileID
	case m.Video != nil:
		return m.Video.FileID
	case m.Audio != nil:
		return m.Audio.FileID
	case len(m.Photo) > 0:
		return m.Photo[len(m.Photo)-1].FileID
	}
	return ""
}

type remoteFile struct {
	FileID   string `json:"file_id"`
	FilePath string `json:"file_path"`
}

func (c *Client) methodPath(method string) string {
	return "/bot" + c.token + "/" + method
}

// request waits for the limiter and returns a request bound to ctx
func (c *Client) request(ctx context.Context) (*resty.Request, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.resty.R().SetContext(ctx), nil
}

// redact strips the bot token from transport errors, which embed the URL
func (c *Client) redact(err error) error {
	if err == nil || c.token == "" {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), c.token, "<token>"))
}

func call[T any](ctx context.Context, c *Client, method string, build func(*resty.Request)) (*apiResponse[T], error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}

	var out apiResponse[T]
	req.SetResult(&out).SetError(&out)
	if build != nil {
		build(req)
	}

	resp, err := req.Post(c.methodPath(method))
	if err != nil {
		return nil, c.redact(err)
	}
	if resp.IsError() || !out.OK {
		desc := out.Description
		if desc == "" {
			desc = resp.Status()
		}
		return &out, fmt.Errorf("%s: %s", method, desc)
	}
	return &out, nil
}

// StoreBlob uploads r as a document to the destination chat via sendDocument.
func (c *Client) StoreBlob(ctx context.Context, destination string, r io.Reader, name string) (*blob.StoredBlob, error) {
	out, err := call[message](ctx, c, "sendDocument", func(req *resty.Request) {
		req.SetMultipartFormData(map[string]string{"chat_id": destination}).
			SetFileReader("document", name, r)
	})
	if err != nil {
		return nil, &domain.UploadError{Reason: err.Error()}
	}

	ref := out.Result.blobRef()
	if out.Result.MessageID == 0 || ref == "" {
		return nil, &domain.UploadError{Reason: "response carried no message or file id"}
	}

	return &blob.StoredBlob{
		MessageRef: strconv.FormatInt(out.Result.MessageID, 10),
		BlobRef:    ref,
	}, nil
}

// GetBlobLink resolves a file id into a download URL. The URL embeds the bot token.
func (c *Client) GetBlobLink(ctx context.Context, blobRef string) (string, error) {
	out, err := call[remoteFile](ctx, c, "getFile", func(req *resty.Request) {
		req.SetBody(map[string]string{"file_id": blobRef})
	})
	if err != nil {
		return "", fmt.Errorf("%v: %w", err, domain.ErrRemoteUnavailable)
	}
	if out.Result.FilePath == "" {
		return "", fmt.Errorf("getFile: no file_path: %w", domain.ErrRemoteUnavailable)
	}

	return c.apiURL + "/file/bot" + c.token + "/" + out.Result.FilePath, nil
}

// GetBlobStream opens the file body so the server can proxy it. The caller closes it.
func (c *Client) GetBlobStream(ctx context.Context, blobRef string) (io.ReadCloser, error) {
	link, err := c.GetBlobLink(ctx, blobRef)
	if err != nil {
		return nil, err
	}

	req, err := c.request(ctx)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrRemoteUnavailable)
	}
	resp, err := req.SetDoNotParseResponse(true).Get(link)
	if err != nil {
		return nil, fmt.Errorf("download: %v: %w", c.redact(err), domain.ErrRemoteUnavailable)
	}
	if resp.IsError() {
		resp.RawBody().Close()
		return nil, fmt.Errorf("download: %s: %w", resp.Status(), domain.ErrRemoteUnavailable)
	}
	return resp.RawBody(), nil
}

// DeleteBlob removes the carrying message. Remote failures are logged and reported as false.
func (c *Client) DeleteBlob(ctx context.Context, destination, messageRef string) bool {
	id, err := strconv.ParseInt(messageRef, 10, 64)
	if err != nil {
		c.logger.Warn("delete skipped: bad message ref", "message_ref", messageRef)
		return false
	}

	out, err := call[bool](ctx, c, "deleteMessage", func(req *resty.Request) {
		req.SetBody(map[string]any{"chat_id": destination, "message_id": id})
	})
	if err != nil {
		c.logger.Warn("remote delete failed", "message_ref", messageRef, "error", err)
		return false
	}
	return out.Result
}

// ValidateCredential reports whether getMe accepts the bot token.
func (c *Client) ValidateCredential(ctx context.Context) bool {
	_, err := call[map[string]any](ctx, c, "getMe", nil)
	if err != nil {
		c.logger.Info("credential rejected", "error", err)
		return false
	}
	return true
}

// SendProbe posts a short message to check that the bot can write to destination.
func (c *Client) SendProbe(ctx context.Context, destination string) bool {
	_, err := call[message](ctx, c, "sendMessage", func(req *resty.Request) {
		req.SetBody(map[string]string{"chat_id": destination, "text": probeText})
	})
	if err != nil {
		c.logger.Info("probe message failed", "error", err)
		return false
	}
	return true
}
