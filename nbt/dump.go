package nbt

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes a human readable rendering of a tag tree, one tag per line:
//
//	TAG_Compound("Schematic"): 2 entries
//	  TAG_Int("x"): 1
func Dump(w io.Writer, root NamedTag) error {
	var sb strings.Builder
	dumpTag(&sb, root.Name, root.Tag, 0)
	_, err := io.WriteString(w, sb.String())
	return err
}

func dumpTag(sb *strings.Builder, name string, tag Tag, indent int) {
	sb.WriteString(strings.Repeat("  ", indent))
	sb.WriteString(tag.ID().String())
	if name != "" {
		fmt.Fprintf(sb, "(%q)", name)
	}
	sb.WriteString(": ")

	switch v := tag.(type) {
	case *Compound:
		fmt.Fprintf(sb, "%d entries\n", v.Len())
		v.Each(func(k string, child Tag) bool {
			dumpTag(sb, k, child, indent+1)
			return true
		})
	case *List:
		fmt.Fprintf(sb, "%d entries of type %s\n", v.Len(), v.Elem())
		for _, child := range v.values {
			dumpTag(sb, "", child, indent+1)
		}
	case ByteArray:
		fmt.Fprintf(sb, "[%d bytes]\n", len(v))
	case IntArray:
		fmt.Fprintf(sb, "%v\n", []int32(v))
	case String:
		fmt.Fprintf(sb, "%s\n", string(v))
	default:
		fmt.Fprintf(sb, "%v\n", v)
	}
}
