package driver

import (
	"github.com/kbukum/etlkit/config"
	"github.com/kbukum/etlkit/errors"
	"github.com/kbukum/etlkit/job"
)

// ContextJobKey holds the JobInfo of the running job in every job context.
const ContextJobKey = "job"

// JobInfo is the job metadata placed in job contexts.
type JobInfo struct {
	Name     string
	Priority int
	Tag      string
	Limit    int
	Threads  int
}

// builder resolves the role factories of one job once and builds a job.Set
// per partition.
type builder struct {
	cfg *config.JobConfig

	extract   job.ExtractorFactory
	transform job.TransformerFactory
	load      job.LoaderFactory
	handle    job.ErrorHandlerFactory
}

func newBuilder(reg *job.Registry, cfg *config.JobConfig) (*builder, error) {
	b := &builder{cfg: cfg}
	var err error
	if b.extract, err = reg.Extractor(cfg.Extract.Type); err != nil {
		return nil, err
	}
	if cfg.Transform != nil {
		if b.transform, err = reg.Transformer(cfg.Transform.Type); err != nil {
			return nil, err
		}
	}
	if cfg.Load != nil {
		if b.load, err = reg.Loader(cfg.Load.Type); err != nil {
			return nil, err
		}
	}
	if cfg.Error != nil {
		if b.handle, err = reg.ErrorHandler(cfg.Error.Type); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// roleAttrs overlays role params on the job params.
func roleAttrs(attrs job.Attributes, role *config.RoleConfig) job.Attributes {
	attrs.Params = attrs.Params.Merge(job.Params(role.Params))
	return attrs
}

func (b *builder) extractor(attrs job.Attributes) (job.Extractor, error) {
	return b.extract(roleAttrs(attrs, b.cfg.Extract), b.cfg.Extract.Source)
}

// set builds every configured role bound to the partition in attrs.
func (b *builder) set(attrs job.Attributes) (job.Set, error) {
	var (
		s   job.Set
		err error
	)
	if s.Extractor, err = b.extractor(attrs); err != nil {
		return job.Set{}, roleError(config.RoleExtract, b.cfg.Name, err)
	}
	if t := b.cfg.Transform; t != nil {
		if s.Transformer, err = b.transform(roleAttrs(attrs, t), t.Source, t.Destination); err != nil {
			return job.Set{}, roleError(config.RoleTransform, b.cfg.Name, err)
		}
	}
	if l := b.cfg.Load; l != nil {
		if s.Loader, err = b.load(roleAttrs(attrs, l), l.Destination); err != nil {
			return job.Set{}, roleError(config.RoleLoad, b.cfg.Name, err)
		}
	}
	if e := b.cfg.Error; e != nil {
		if s.ErrorHandler, err = b.handle(roleAttrs(attrs, e), e.Source, e.Destination); err != nil {
			return job.Set{}, roleError(config.RoleError, b.cfg.Name, err)
		}
	}
	return s, nil
}

func roleError(role, jobName string, err error) error {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr.WithDetail("job", jobName).WithDetail("role", role)
	}
	return errors.Configurationf("job %s: %s role", jobName, role).WithCause(err)
}

// domain converts configured terms into a job filter.
func domain(terms []config.TermConfig) job.Filter {
	if len(terms) == 0 {
		return nil
	}
	f := make(job.Filter, len(terms))
	for i, t := range terms {
		f[i] = job.Term{Field: t.Field, Operator: t.Operator, Value: t.Value}
	}
	return f
}
