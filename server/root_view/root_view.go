package root_view

import (
	"context"
	"fmt"
	"html/template"

	"gridmdp/reinforcement"
	"gridmdp/server/cell_views"
	"gridmdp/server/fastview"
)

// RootView is the main page's index.html, which is the container for all the
// view components and the merged stream of their ele-updates.
type RootView struct {
	views   []fastview.ViewComponent
	updates <-chan []fastview.EleUpdate
}

// NewRootView builds the page's views over the solver's progress reports.
// All channels close when ctx is cancelled.
func NewRootView(
	ctx context.Context,
	progress <-chan reinforcement.Progress,
) (*RootView, error) {
	views, updates, err := fastview.NewViewBuilder[reinforcement.Progress, cell_views.Board]().
		WithContext(ctx).
		WithModel(progress, cell_views.Convert).
		WithView(func(
			done <-chan struct{},
			boards <-chan cell_views.Board) fastview.ViewComponent {
			return cell_views.NewStatus(done, boards)
		}).
		WithView(func(
			done <-chan struct{},
			boards <-chan cell_views.Board) fastview.ViewComponent {
			return cell_views.NewValuesGrid(done, boards)
		}).
		WithView(func(
			done <-chan struct{},
			boards <-chan cell_views.Board) fastview.ViewComponent {
			return cell_views.NewValueFunction(done, boards)
		}).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build views: %w", err)
	}

	return &RootView{
		views:   views,
		updates: updates,
	}, nil
}

// Updates returns the main ele-update channel for all the views.
func (rv *RootView) Updates() <-chan []fastview.EleUpdate {
	return rv.updates
}

// Parse builds the main page's template, with websocket bootstrap code, and returns its name.
// It also sets up the func-map that the child components depend on.
func (rv *RootView) Parse(
	parent *template.Template,
) (name string, err error) {
	rt := parent.Funcs(
		template.FuncMap{
			"add":  func(i, j int) int { return i + j },
			"sub":  func(i, j int) int { return i - j },
			"mult": func(i, j int) int { return i * j },
			"div":  func(i, j int) int { return i / j },
		})

	var bodySpec string
	for _, vc := range rv.views {
		tname, parseErr := vc.Parse(rt)
		if parseErr != nil {
			return "", fmt.Errorf("parse view: %w", parseErr)
		}
		bodySpec += `{{ template "` + tname + `" . }}`
	}

	// The main template bootstraps the rest: sets up the client websocket and aggregates views.
	name = "mainpage"
	indexTemplate := `
	{{ define "` + name + `" }}
	<!DOCTYPE html>
	<html>
		<head>
			<link rel="icon" href="data:,">
			<title>gridmdp</title>
			<script>
				const ws = new WebSocket("ws://" + location.host + "/ws");
				ws.onopen = function (event) {
					console.log("Web socket opened")
				};

				ws.onerror = function (event) {
					console.log('WebSocket error: ', event);
				};

				// When the server pushes view updates, find these eles and update them.
				ws.onmessage = function (event) {
					const items = JSON.parse(event.data)
					for (const update of items) {
						const ele = document.getElementById(update.EleId)
						if (ele === null) {
							continue
						}
						for (const op of update.Ops) {
							if (op.Key === "` + fastview.TextContent + `") {
								ele.textContent = op.Value;
							} else {
								ele.setAttribute(op.Key, op.Value)
							}
						}
					}
				}
			</script>
		</head>
		<body>
		` + bodySpec + `
		</body></html>
	{{ end }}
	`

	_, err = rt.Parse(indexTemplate)
	return
}
