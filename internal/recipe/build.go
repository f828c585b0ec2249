package recipe

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/nao1215/streamcraft/internal/pipeline"
	"github.com/nao1215/streamcraft/internal/stage"
)

// Build constructs the stages of r, links them and returns the pipeline.
// The pipeline ID is chosen before any stage is built and passed to the
// factories as Env.RunID.
// Consumers are built before their producer. On error every stage built so
// far is released and the error names the path of the failing node.
func Build(r *Recipe, reg *Registry, env Env) (*pipeline.Pipeline, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if env.Label == "" {
		env.Label = r.Name
	}
	runID := uuid.New()
	env.RunID = runID.String()

	b := &builder{reg: reg, env: env}
	head, err := b.node("head", r.Head)
	if err != nil {
		return nil, err
	}

	opts := []pipeline.Option{pipeline.WithName(r.Name), pipeline.WithID(runID)}
	if env.Logger != nil {
		opts = append(opts, pipeline.WithLogger(env.Logger))
	}
	p, err := pipeline.New(head, opts...)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("head/%s: %w", r.Head.label(), err), head.Release())
	}
	return p, nil
}

type builder struct {
	reg *Registry
	env Env
}

// node builds n and everything below it. The returned stage owns its
// consumers.
func (b *builder) node(parent string, n *Node) (stage.Stage, error) {
	path := parent + "/" + n.label()

	links, err := b.consumers(path, n)
	if err != nil {
		return nil, err
	}
	releaseAll := func(err error) error {
		for _, l := range links {
			err = errors.Join(err, l.consumer.Release())
		}
		return err
	}

	f, ok := b.reg.Lookup(n.Kind)
	if !ok {
		return nil, releaseAll(fmt.Errorf("%s: %w: %s", path, ErrUnknownKind, n.Kind))
	}
	s, err := f(n, b.env)
	if err != nil {
		return nil, releaseAll(fmt.Errorf("%s: %w", path, err))
	}

	prod, isProducer := s.(stage.Producer)
	switch {
	case len(links) > 0 && !isProducer:
		return nil, releaseAll(errors.Join(fmt.Errorf("%s: %w", path, ErrNotProducer), s.Release()))
	case len(links) == 0 && isProducer:
		return nil, errors.Join(fmt.Errorf("%s: %w", path, ErrMissingConsumer), s.Release())
	}

	for i, l := range links {
		if err := prod.Link(l.slot, l.consumer); err != nil {
			// Consumers already linked are owned by s now.
			err = fmt.Errorf("%s -> %s: %w", path, l.path, err)
			for _, rest := range links[i:] {
				err = errors.Join(err, rest.consumer.Release())
			}
			return nil, errors.Join(err, s.Release())
		}
	}
	return s, nil
}

type link struct {
	slot     string
	path     string
	consumer stage.Stage
}

// consumers builds the sink or the outputs of n in slot order.
func (b *builder) consumers(path string, n *Node) ([]link, error) {
	var links []link
	fail := func(err error) ([]link, error) {
		for _, l := range links {
			err = errors.Join(err, l.consumer.Release())
		}
		return nil, err
	}

	if n.Sink != nil {
		s, err := b.node(path, n.Sink)
		if err != nil {
			return nil, err
		}
		return []link{{slot: stage.SlotMain, path: path + "/" + n.Sink.label(), consumer: s}}, nil
	}

	for _, slot := range slices.Sorted(maps.Keys(n.Outputs)) {
		child := n.Outputs[slot]
		childPath := path + "[" + slot + "]"
		s, err := b.node(childPath, child)
		if err != nil {
			return fail(err)
		}
		links = append(links, link{slot: slot, path: childPath + "/" + child.label(), consumer: s})
	}
	return links, nil
}
