package orchestrator

import (
	"fmt"
	"strconv"
	"strings"

	"server/internal/collab"
)

// promptContext holds the resolved hints a job's prompts are built from.
// Resolved once per job, before the first item.
type promptContext struct {
	template string
	campaign *collab.CampaignHints
	segment  *collab.SegmentHints
}

// basePrompt returns the job-level prompt with segment placeholders
// substituted. The {index} placeholder survives; it varies per item.
func (p *promptContext) basePrompt() string {
	if p.template != "" {
		out := p.template
		if p.segment != nil {
			if p.segment.Tone != "" {
				out = strings.ReplaceAll(out, "{tone}", p.segment.Tone)
			}
			if len(p.segment.Keywords) > 0 {
				out = strings.ReplaceAll(out, "{keywords}", strings.Join(p.segment.Keywords, ", "))
			}
		}
		return out
	}

	out := fmt.Sprintf("Create engaging marketing content for %s", p.campaign.Channel)
	if p.segment != nil {
		if p.segment.Tone != "" {
			out += fmt.Sprintf(" with %s tone", p.segment.Tone)
		}
		if len(p.segment.Keywords) > 0 {
			out += fmt.Sprintf(" focusing on: %s", strings.Join(p.segment.Keywords, ", "))
		}
	}
	return out
}

// itemPrompt substitutes the 1-based item index into the base prompt.
func (p *promptContext) itemPrompt(index int) string {
	return strings.ReplaceAll(p.basePrompt(), "{index}", strconv.Itoa(index))
}
