package invoice

import (
	"fmt"

	"github.com/ginjaninja78/ifirma-client/internal/types"
)

const (
	apiPrefix = "/iapi/"

	// ListPageSize is the fixed number of documents returned by List.
	ListPageSize = 10
)

// resourceName is the ifirma resource for one kind/stage combination.
func resourceName(kind types.DocumentKind, stage types.DocumentStage) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("unsupported document kind %s", kind)
	}
	if !stage.Valid() {
		return "", fmt.Errorf("unsupported document stage %s", stage)
	}

	switch {
	case kind == types.KindDomestic && stage == types.StageFinal:
		return "fakturakraj", nil
	case kind == types.KindDomestic && stage == types.StageProforma:
		return "fakturaproformakraj", nil
	case kind == types.KindCashOnDelivery && stage == types.StageFinal:
		return "fakturawysylka", nil
	default:
		return "fakturaproformawysylka", nil
	}
}

// Endpoint resolves the wire paths of one kind/stage combination.
type Endpoint struct {
	Resource string
}

// EndpointFor returns the endpoint for kind and stage.
func EndpointFor(kind types.DocumentKind, stage types.DocumentStage) (Endpoint, error) {
	res, err := resourceName(kind, stage)
	if err != nil {
		return Endpoint{}, err
	}
	return Endpoint{Resource: res}, nil
}

// CreatePath is where new documents are POSTed.
func (e Endpoint) CreatePath() string {
	return apiPrefix + e.Resource + ".json"
}

// StatusPath is the JSON status envelope of document id.
func (e Endpoint) StatusPath(id string) string {
	return fmt.Sprintf("%s%s/%s.json", apiPrefix, e.Resource, id)
}

// RepresentationPath is the rendering of document id in repr.
func (e Endpoint) RepresentationPath(id string, repr types.Representation) string {
	return fmt.Sprintf("%s%s/%s.%s", apiPrefix, e.Resource, id, repr)
}

// ListPath is the bounded listing of the resource.
func (e Endpoint) ListPath() string {
	return fmt.Sprintf("%s%s/list.json?limit=%d", apiPrefix, e.Resource, ListPageSize)
}
