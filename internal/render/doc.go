// Package render turns a rendering request into output markup through a
// chain of streaming stages:
//
//  1. Stylesheet: the named text/template is executed with the request and
//     writes XML markup into a pipe.
//  2. Tokens: the pipe is tokenized lazily into an iter.Seq2[xml.Token, error].
//  3. MathML: content MathML (apply, ci, cn) is rewritten into presentation
//     MathML (mrow, mi, mn, mo).
//  4. Serialize: tokens are written in the requested method (HTML5, XHTML,
//     XML) through an encoder for the requested charset.
//
// Each stage consumes the lazy sequence produced by the one before it, so
// stages are composed front to back and a consumer that stops early
// releases the producer.
//
// Stylesheets are looked up by name in an fs.FS as <name>.tmpl. Files
// starting with an underscore hold shared partials and are parsed into
// every stylesheet. The defaults are embedded (see DefaultStylesheets).
//
// Every failure is returned as *Error naming the stylesheet and stage.
// Output already written to the sink is not rolled back.
package render
