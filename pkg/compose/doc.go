/*
Package compose implements the template substitution and page composition
engine behind FreedomCMS.

A page is an ordered sequence of blocks, each referencing a reusable
template. Block text may contain {{name}} or {{name:type}} placeholders
which are filled in from per-block parameter values at render time. The
package also provides the supporting pieces the page editor needs: slug
derivation, placeholder extraction, and nesting depth computed from
<cms:NAME> caption tags.

Rendering is deliberately a plain two-pass string scan rather than a
general template engine, so the token syntax, the type suffix handling and
the duplicate tie-break stay exactly reproducible.
*/
package compose
