package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/testctx/pkg/adapters/file"
	"github.com/aretw0/testctx/pkg/domain"
)

// Overlay contains live state to visualize on the graph.
type Overlay struct {
	// Waiting units are queued for an AFTER restart.
	Waiting []string
	// Started groups have a running context.
	Started []string
}

// OverlayFrom builds an overlay from group snapshots.
func OverlayFrom(snaps []domain.Snapshot) *Overlay {
	o := &Overlay{}
	for _, s := range snaps {
		o.Waiting = append(o.Waiting, s.Waiting...)
		if s.Created && !s.Stopped {
			o.Started = append(o.Started, s.Group)
		}
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart of a metadata document.
// It applies semantic styling:
// - Group: ((Circle)), labelled with its extension
// - Unit with BEFORE policy: [/Parallelogram/]
// - Unit with AFTER policy: [\Parallelogram\]
// - Unit without policy: [Rectangle]
// - Included listener: [[Subroutine]], excluded listeners use a dotted edge
func GenerateMermaid(doc *file.Document, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, name := range doc.GroupNames() {
		g := doc.Groups[name]
		groupID := sanitizeMermaidID("group_" + name)

		label := name
		if len(g.Extensions) > 0 {
			exts := make([]string, 0, len(g.Extensions))
			for _, e := range g.Extensions {
				exts = append(exts, e.Name)
			}
			label = fmt.Sprintf("%s <br/> %s", name, strings.Join(exts, ", "))
		}
		sb.WriteString(fmt.Sprintf("    %s((\"%s\"))\n", groupID, label))

		for _, u := range g.Units {
			unitID := sanitizeMermaidID("unit_" + u.ID)
			opener, closer := "[", "]"
			switch u.Policy {
			case domain.ReloadBefore:
				opener, closer = "[/", "/]"
			case domain.ReloadAfter:
				opener, closer = "[\\", "\\]"
			}
			sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", unitID, opener, u.DisplayName(), closer))
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", groupID, unitID))
		}

		for _, d := range g.Listeners {
			switch {
			case d.Include != "":
				id := sanitizeMermaidID("listener_" + d.Include)
				sb.WriteString(fmt.Sprintf("    %s[[\"%s\"]]\n", id, d.Include))
				sb.WriteString(fmt.Sprintf("    %s -- include --> %s\n", groupID, id))
			case d.Exclude != "":
				id := sanitizeMermaidID("listener_" + d.Exclude)
				sb.WriteString(fmt.Sprintf("    %s[[\"%s\"]]\n", id, d.Exclude))
				sb.WriteString(fmt.Sprintf("    %s -. exclude .-> %s\n", groupID, id))
			}
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text stays readable on both light and dark themes.
		sb.WriteString("    classDef waiting fill:#fff3e0,stroke:#e65100,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef started fill:#e8f5e9,stroke:#1b5e20,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.Waiting {
			safeID := sanitizeMermaidID("unit_" + id)
			if !seen[safeID] && id != "" {
				seen[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s waiting;\n", safeID))
			}
		}
		for _, g := range overlay.Started {
			sb.WriteString(fmt.Sprintf("    class %s started;\n", sanitizeMermaidID("group_"+g)))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_", "*", "_")
	return r.Replace(id)
}
