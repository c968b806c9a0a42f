package policy

// BuiltinAgents returns the stock review personas used to bootstrap an empty
// agents collection. Criteria text is the canonical wording shipped with the
// reviewer; operators extend these via policy guidance and knowledge-base
// entries in the store.
func BuiltinAgents() []Agent {
	agents := []Agent{
		{
			Name: "National Security",
			Criteria: ` - Portrays military operations, strategies, or decisions in a negative light
 - Contradicts official narratives about wars
 - Reveals sensitive information about military or security operations
 - Suggests military failures or incompetence
 - Criticizes military leadership's decision-making`,
		},
		{
			Name: "Institutional Integrity",
			Criteria: ` - Undermines the reputation of state institutions
 - Suggests corruption, incompetence, or overreach by institutions
 - Portrays military rule as harmful to the country
 - Suggests institutional failures or abuses of power
 - Criticizes military or intelligence agencies' actions or motivations`,
		},
		{
			Name: "Historical Narrative Review",
			Criteria: ` - Contradicts official historical narratives about key events
 - Criticizes founding leaders or their decisions
 - Provides alternative interpretations of partition or founding events
 - Presents wartime history in a way that differs from official narrative
 - Questions decisions made by historical leadership`,
		},
		{
			Name: "Foreign Relations Review",
			Criteria: ` - Contains criticism of allied nations
 - Discusses sensitive topics related to allied nations
 - Makes comparisons that could offend foreign partners
 - Suggests policies or actions that contradict official foreign policy
 - Contains language that could harm bilateral relations`,
		},
		{
			Name: "Federal Unity Review",
			Criteria: ` - Creates or reinforces divisions between provinces or ethnic groups
 - Suggests preferential treatment of certain regions or ethnicities
 - Highlights historical grievances between regions
 - Portrays certain ethnic groups as dominating others
 - Discusses separatist movements or provincial alienation`,
		},
		{
			Name: "Rhetoric & Tone Review",
			Criteria: ` - Uses emotionally charged or inflammatory language
 - Contains sweeping generalizations or absolute statements
 - Uses rhetoric that could be divisive or provocative
 - Employs exaggeration or hyperbole on sensitive topics
 - Attributes motives without evidence`,
		},
	}

	for i := range agents {
		agents[i].Threshold = DefaultThreshold
		agents[i] = agents[i].Resolve()
	}
	return agents
}
