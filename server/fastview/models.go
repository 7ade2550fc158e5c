// fastview implements a builder pattern for simple server-side views:
// given an input data format, apply a transformation to a view-model,
// and then multiplex that data to one or more views whose element updates
// are pushed to the browser over a websocket.
package fastview

import (
	"html/template"
)

// EleUpdate is an element identifier and a set of operations to apply to its attributes/content.
type EleUpdate struct {
	// The id by which to find the element
	EleId string
	// Op keys are attrib keys or 'textContent', values are the strings to which these are set.
	// Example: ('fill','gray') means 'set attribute fill to gray'. 'textContent' is a reserved key:
	// ('textContent','95.00') means 'set ele.textContent to 95.00'.
	Ops []Op
}

// Op is a key and value. For example an html attribute and its new value.
type Op struct {
	Key   string
	Value string
}

// TextContent is the reserved Op key for replacing an element's text.
const TextContent = "textContent"

// ViewComponent is a server side view: Parse adds its initial form to a page
// template and Updates yields the ele-updates that keep it current.
type ViewComponent interface {
	Updates() <-chan []EleUpdate
	// Parse adds the view-component to the passed parent template, inheriting its
	// func-map, and returns the name of the template it defined.
	Parse(*template.Template) (string, error)
}
