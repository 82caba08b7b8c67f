// Package runtime defines the item runtime the delivery engine drives and
// provides a reference implementation over compiled assessment content.
//
// The engine never interprets assessment content itself. It asks an
// ItemController to initialize, template, bind, validate, process and
// close an item session, and asks the Runtime to plan tests and decide
// whether a test part may end. The reference runtime supports choice,
// text and upload interactions, integer template variables and
// mapping or match-correct scoring, which is enough to exercise every
// engine transition.
//
// Controllers mutate the *ir.ItemSessionState they were created with.
// Notifications raised while doing so go to the Recorder passed in.
package runtime
