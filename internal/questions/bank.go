package questions

// Static question banks used when generation fails or returns nothing
// usable. Keyed by interview type; unknown types fall back to behavioral.
var fallbackBanks = map[string][]string{
	"behavioral": {
		"Tell me about yourself and what led you to apply for this role.",
		"Describe a time you disagreed with a teammate. How did you resolve it?",
		"Tell me about a project you are particularly proud of and your role in it.",
		"Describe a situation where you had to meet a tight deadline. What did you do?",
		"Tell me about a time you received difficult feedback. How did you respond?",
		"Describe a time you had to influence a decision without formal authority.",
		"Tell me about a failure and what you learned from it.",
		"How do you prioritize when everything feels urgent?",
		"Describe a time you went beyond what was expected of you.",
		"Where do you see yourself growing in the next few years?",
	},
	"technical": {
		"Walk me through a technically challenging problem you solved recently.",
		"How do you approach debugging an issue you have never seen before?",
		"Explain a system you designed or significantly contributed to.",
		"How do you decide between competing technical approaches?",
		"Tell me about a time a production incident taught you something.",
		"How do you keep code maintainable as a project grows?",
		"Describe your approach to testing. What do you test first and why?",
		"What trade-offs do you consider when optimizing for performance?",
		"How do you evaluate whether to adopt a new technology?",
		"Explain a technical concept you know well to a non-technical audience.",
	},
	"system-design": {
		"Design a URL shortening service. Walk me through your approach.",
		"How would you design a rate limiter for a public API?",
		"Design a notification system that supports email, SMS and push.",
		"How would you scale a read-heavy service to millions of users?",
		"Design a chat application. How do you handle message ordering?",
		"How do you approach data partitioning for a growing dataset?",
		"Design a file storage service with sharing and permissions.",
		"How would you add caching to an existing service? What are the risks?",
		"Design a metrics pipeline ingesting millions of events per second.",
		"How do you design for graceful degradation during partial outages?",
	},
}

// fallbackBank returns the static bank for an interview type
func fallbackBank(interviewType string) []string {
	if bank, ok := fallbackBanks[interviewType]; ok {
		return bank
	}
	return fallbackBanks["behavioral"]
}
