package fastview

import (
	"context"
	"errors"
	"time"

	channerics "github.com/niceyeti/channerics/channels"
)

// ViewBuilder constructs one or more views that share a common view-model.
// Build converts each source item to the view-model once, broadcasts it to
// every view and merges their ele-updates into a single coalesced stream.
type ViewBuilder[DataModel any, ViewModel any] struct {
	source      <-chan DataModel
	viewModelFn func(DataModel) ViewModel
	builderFns  []ViewBuilderFunc[ViewModel]
	done        <-chan struct{} // Okay if nil
	rate        time.Duration
}

// NewViewBuilder returns a builder for a given data-model and view-model.
func NewViewBuilder[DataModel any, ViewModel any]() *ViewBuilder[DataModel, ViewModel] {
	return &ViewBuilder[DataModel, ViewModel]{rate: DefaultCoalesceRate}
}

// WithModel sets the source channel and the function converting its items to the view-model.
func (vb *ViewBuilder[DataModel, ViewModel]) WithModel(
	input <-chan DataModel,
	convert func(DataModel) ViewModel,
) *ViewBuilder[DataModel, ViewModel] {
	vb.source = input
	vb.viewModelFn = convert
	return vb
}

// ViewBuilderFunc builds a view from an input view-model channel and a 'done' channel for cleanup.
type ViewBuilderFunc[ViewModel any] func(<-chan struct{}, <-chan ViewModel) ViewComponent

// WithView adds a view to the list of views to build.
// They are returned in the same order as added when Build() is called.
func (vb *ViewBuilder[DataModel, ViewModel]) WithView(
	builderFn ViewBuilderFunc[ViewModel],
) *ViewBuilder[DataModel, ViewModel] {
	vb.builderFns = append(vb.builderFns, builderFn)
	return vb
}

// WithContext ensures that all downstream channels are closed when context is cancelled.
func (vb *ViewBuilder[DataModel, ViewModel]) WithContext(
	ctx context.Context,
) *ViewBuilder[DataModel, ViewModel] {
	vb.done = ctx.Done()
	return vb
}

// WithCoalesceRate sets how often merged updates are offered downstream.
func (vb *ViewBuilder[DataModel, ViewModel]) WithCoalesceRate(
	rate time.Duration,
) *ViewBuilder[DataModel, ViewModel] {
	vb.rate = rate
	return vb
}

// ErrNoViews is returned when Build() is called before the caller has added any views.
var ErrNoViews error = errors.New("no views to build: WithView must be called")

// ErrNoModel is returned when Build() is called before WithModel() has been called.
var ErrNoModel error = errors.New("no model specified: WithModel must be called")

// Build wires the channels together and returns the views, in the order they
// were added, along with their merged and coalesced ele-update channel.
func (vb *ViewBuilder[DataModel, ViewModel]) Build() (
	views []ViewComponent,
	updates <-chan []EleUpdate,
	err error,
) {
	if len(vb.builderFns) == 0 {
		return nil, nil, ErrNoViews
	}
	if vb.viewModelFn == nil || vb.source == nil {
		return nil, nil, ErrNoModel
	}

	vmChan := channerics.Convert(vb.done, vb.source, vb.viewModelFn)
	vmChans := channerics.Broadcast(vb.done, vmChan, len(vb.builderFns))
	inputs := make([]<-chan []EleUpdate, 0, len(vb.builderFns))
	for i, build := range vb.builderFns {
		view := build(vb.done, vmChans[i])
		views = append(views, view)
		inputs = append(inputs, view.Updates())
	}

	updates = Coalesce(vb.done, channerics.Merge(vb.done, inputs...), vb.rate)
	return views, updates, nil
}
