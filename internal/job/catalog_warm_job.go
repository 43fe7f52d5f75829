package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/deskroute/internal/ai"
	"github.com/xxxsen/deskroute/internal/model"
)

type departmentLister interface {
	List(ctx context.Context) ([]model.Department, error)
}

// CatalogWarmJob pushes every department text through the cached
// embedder chain so routing requests hit a warm cache instead of
// paying the provider round trip.
type CatalogWarmJob struct {
	departments departmentLister
	embedder    ai.IEmbedder
}

func NewCatalogWarmJob(departments departmentLister, embedder ai.IEmbedder) *CatalogWarmJob {
	return &CatalogWarmJob{departments: departments, embedder: embedder}
}

func (j *CatalogWarmJob) Name() string {
	return "catalog_warm"
}

func (j *CatalogWarmJob) Run(ctx context.Context) error {
	if j.departments == nil || j.embedder == nil {
		return nil
	}
	depts, err := j.departments.List(ctx)
	if err != nil {
		return err
	}
	if len(depts) == 0 {
		return nil
	}
	texts := make([]string, 0, len(depts))
	for _, dept := range depts {
		texts = append(texts, dept.EmbedText())
	}
	if _, err := j.embedder.EmbedBatch(ctx, texts, ai.TaskDocument); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("catalog embeddings warmed", zap.Int("departments", len(depts)))
	return nil
}
