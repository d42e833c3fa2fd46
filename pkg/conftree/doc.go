// Package conftree parses indentation-structured device configurations into a
// tree of statements and supports removing statements together with their
// children.
//
// A statement's children are the lines that follow it with a deeper indent,
// up to the next line indented at or above the statement's own level. Blank
// lines always close open blocks. The tree never rewrites text: rendering
// returns the surviving original lines in their original order.
package conftree
