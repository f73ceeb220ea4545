package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/pxr-io/block-gateway/internal/config"
	"github.com/pxr-io/block-gateway/internal/model"
)

// blockNSPattern is the namespace shape every block catalog entry must carry.
// Entries outside this namespace are valid catalog documents but are not
// blocks, and must not be routable through the gateway.
var blockNSPattern = regexp.MustCompile(`^catalog/ext/[^/]+/block(/.+)?$`)

// CatalogResolver resolves a numeric block code to catalog metadata. The root
// block is synthesized from local configuration; every other block is fetched
// fresh per request from the catalog service.
type CatalogResolver struct {
	cfg    *config.GatewayConfig
	client *http.Client
}

// NewCatalogResolver returns a resolver backed by the given HTTP client.
func NewCatalogResolver(cfg *config.GatewayConfig, client *http.Client) *CatalogResolver {
	return &CatalogResolver{cfg: cfg, client: client}
}

// catalogDocument is the catalog service response shape.
type catalogDocument struct {
	CatalogItem struct {
		NS   string `json:"ns"`
		Name string `json:"name"`
	} `json:"catalogItem"`
	Template struct {
		Code struct {
			Value int `json:"_value"`
			Ver   int `json:"_ver"`
		} `json:"_code"`
		ActorType   string `json:"actor-type"`
		ServiceName string `json:"service-name"`
	} `json:"template"`
}

// Get resolves the catalog for a block code, propagating the operator's
// encoded session to the catalog service for authentication.
func (r *CatalogResolver) Get(ctx context.Context, code int, op *model.Operator) (*model.Catalog, error) {
	if code == r.cfg.RootBlock.Code {
		return &model.Catalog{
			BlockName: r.cfg.RootBlock.Name,
			Code:      r.cfg.RootBlock.Code,
			Version:   1,
			Domain:    r.cfg.RootBlock.Domain,
			ActorType: model.RootActorType,
		}, nil
	}

	target := strings.ReplaceAll(r.cfg.Services.CatalogURL, "{root}", r.cfg.RootBlock.Domain)
	target = strings.ReplaceAll(target, "{code}", strconv.Itoa(code))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, wrapError(err, KindCatalogServiceFailure, http.StatusInternalServerError, "catalog request could not be built")
	}
	httpReq.Header.Set(r.cfg.Headers.Session, op.Encoded)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, wrapError(err, KindCatalogUnreachable, http.StatusInternalServerError, "catalog service is unreachable")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent, http.StatusBadRequest:
		return nil, newError(KindCatalogNotFound, http.StatusBadRequest,
			fmt.Sprintf("catalog not found for block code %d", code))
	default:
		return nil, newError(KindCatalogServiceFailure, http.StatusInternalServerError,
			fmt.Sprintf("catalog service returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrapError(err, KindCatalogServiceFailure, http.StatusInternalServerError, "catalog response could not be read")
	}

	var doc catalogDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, wrapError(err, KindCatalogServiceFailure, http.StatusInternalServerError, "catalog response is not valid JSON")
	}

	if !blockNSPattern.MatchString(doc.CatalogItem.NS) {
		return nil, newError(KindNotABlockCatalog, http.StatusBadRequest,
			fmt.Sprintf("catalog entry is not a block catalog (%d)", code))
	}

	var raw map[string]any
	_ = json.Unmarshal(body, &raw)

	return &model.Catalog{
		BlockName: doc.CatalogItem.Name,
		Code:      doc.Template.Code.Value,
		Version:   doc.Template.Code.Ver,
		Domain:    doc.Template.ServiceName,
		ActorType: doc.Template.ActorType,
		Raw:       raw,
	}, nil
}
