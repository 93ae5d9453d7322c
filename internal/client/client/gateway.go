package client

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gfsdash/internal/client/models"
	"github.com/dmitrijs2005/gfsdash/internal/logging"
)

// Gateway is the client gateway contract: it accepts whole files and does
// the chunking and placement itself.
type Gateway interface {
	Upload(ctx context.Context, req models.UploadRequest) (models.UploadResult, error)
}

type HTTPGateway struct {
	svc *jsonService
}

func NewHTTPGateway(baseURL string, timeout time.Duration, log logging.Logger) *HTTPGateway {
	return &HTTPGateway{svc: newJSONService("gateway", baseURL, timeout, log)}
}

func (g *HTTPGateway) UseTokenSource(ts TokenSource) {
	g.svc.transport.setTokenSource(ts)
}

func (g *HTTPGateway) Upload(ctx context.Context, req models.UploadRequest) (models.UploadResult, error) {
	var res models.UploadResult
	if err := g.svc.do(ctx, http.MethodPost, "/upload", req, &res, true); err != nil {
		return models.UploadResult{}, err
	}
	if res.Filename == "" {
		res.Filename = req.Filename
	}
	return res, nil
}
