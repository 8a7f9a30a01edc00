package policy

const (
	FeatureAntiSpam       = "anti_spam"
	FeatureAutoMute       = "auto_mute"
	FeatureKeywordFilter  = "keyword_filter"
	FeatureFloodControl   = "flood_control"
	FeatureWelcome        = "welcome_message"
	FeatureGoodbye        = "goodbye_message"
	FeatureMeme           = "meme"
	FeatureVideo          = "video"
	FeatureGreetUsers     = "greet_users"
	FeatureAntiLink       = "anti_link"
	FeatureReportSystem   = "report_system"
	FeatureMessageCounter = "message_counter"
	FeatureRandomEmoji    = "random_emoji"
	FeatureRanking        = "ranking_system"
	FeatureTruthOrDare    = "truth_or_dare"
	FeatureWordGames      = "word_games"
	FeatureAutoResponses  = "auto_responses"
)

// Every toggleable feature, in display order.
var Features = []string{
	FeatureAntiSpam,
	FeatureAutoMute,
	FeatureKeywordFilter,
	FeatureFloodControl,
	FeatureWelcome,
	FeatureGoodbye,
	FeatureMeme,
	FeatureVideo,
	FeatureGreetUsers,
	FeatureAntiLink,
	FeatureReportSystem,
	FeatureMessageCounter,
	FeatureRandomEmoji,
	FeatureRanking,
	FeatureTruthOrDare,
	FeatureWordGames,
	FeatureAutoResponses,
}

type FeatureState struct {
	Name    string
	Enabled bool
}
