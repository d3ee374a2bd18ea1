package notification

import (
	"strconv"
	"strings"
	"time"

	"github.com/trezcool/masomo-notify/core"
)

// PublisherState
type PublisherState string

const (
	StateActive      PublisherState = "active"
	StateDeactivated PublisherState = "deactivated"
)

type (
	// SubscriptionContext identifies which Publisher a resource (or a sub-section of it) maps to.
	// An empty SubPath denotes the whole resource.
	SubscriptionContext struct {
		ResourceType string `json:"resource_type" validate:"required,max=64,resourcetype"`
		ResourceID   int64  `json:"resource_id" validate:"required,gt=0"`
		SubPath      string `json:"sub_path" validate:"max=255"`
	}

	// PublisherData is resource-specific and opaque to the engine.
	PublisherData struct {
		Data         string `json:"data"`
		BusinessPath string `json:"business_path"`
	}

	Publisher struct {
		ID           string         `json:"id"`
		ResourceType string         `json:"resource_type"`
		ResourceID   int64          `json:"resource_id"`
		SubPath      string         `json:"sub_path"`
		BusinessPath string         `json:"business_path"`
		Data         string         `json:"data"`
		State        PublisherState `json:"state"`
		LatestNews   time.Time      `json:"latest_news"` // UTC
		CreatedAt    time.Time      `json:"created_at"`  // UTC
	}

	Subscriber struct {
		ID          string    `json:"id"`
		IdentityID  int64     `json:"identity_id"`
		PublisherID string    `json:"publisher_id"`
		Enabled     bool      `json:"enabled"`
		CreatedAt   time.Time `json:"created_at"` // UTC
		LastSeen    time.Time `json:"last_seen"`  // UTC
	}

	// Subscription pairs a Subscriber with its Publisher.
	Subscription struct {
		Subscriber Subscriber `json:"subscriber"`
		Publisher  Publisher  `json:"publisher"`
	}
)

func (sc *SubscriptionContext) Clean() {
	sc.ResourceType = core.CleanString(sc.ResourceType)
	sc.SubPath = core.CleanString(sc.SubPath)
}

// Key uniquely identifies the context, e.g. "forum:42:" or "calendar:7:group/3".
func (sc SubscriptionContext) Key() string {
	return sc.ResourceType + ":" + strconv.FormatInt(sc.ResourceID, 10) + ":" + sc.SubPath
}

func (sc SubscriptionContext) String() string {
	return strings.TrimSuffix(sc.Key(), ":")
}

// IsValid reports whether p may still report news.
func (p Publisher) IsValid() bool { return p.State != StateDeactivated }

func (p Publisher) Context() SubscriptionContext {
	return SubscriptionContext{ResourceType: p.ResourceType, ResourceID: p.ResourceID, SubPath: p.SubPath}
}

// HasNewsSince reports whether p got news strictly after since.
func (p Publisher) HasNewsSince(since time.Time) bool {
	return p.IsValid() && since.Before(p.LatestNews)
}

func newPublisher(id string, sc SubscriptionContext, data PublisherData, now time.Time) Publisher {
	return Publisher{
		ID:           id,
		ResourceType: sc.ResourceType,
		ResourceID:   sc.ResourceID,
		SubPath:      sc.SubPath,
		BusinessPath: data.BusinessPath,
		Data:         data.Data,
		State:        StateActive,
		LatestNews:   now,
		CreatedAt:    now,
	}
}
