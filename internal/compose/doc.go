// Package compose renders card images from a small scene graph.
//
// A scene is a tree rooted at a Canvas. Containers are invisible fixed-size
// boxes that group and optionally mirror their children; Image and Text are
// the leaves. Positions are resolved at render time against the immediate
// parent, so Center composes through any depth of nesting:
//
//	canvas := compose.NewCanvas(background,
//		compose.NewContainer(compose.Pos(40, 120), compose.Size{W: 400, H: 300},
//			compose.NewText(compose.At(compose.Center, compose.Px(0)), compose.Size{W: 400, H: 40}, "Victory", style),
//		).Mirror(),
//	)
//	img, err := canvas.Render(ctx)
package compose
