// Package payload locates and decodes the Google Visualization DataTable
// literal that TeamTemp embeds in its historical results pages.
//
// The page is not a documented API, so the locator tolerates minor syntax
// drift: the literal may sit anywhere in the HTML or inside a <script>
// element, use single quotes or unquoted keys, and carry trailing
// constructor arguments. Anything it cannot decode is reported as
// ErrNotFound or ErrUndecodable instead of an error the caller must handle
// specially.
package payload
