package poster

import (
	"github.com/mattermost/mattermost/server/public/model"
	"github.com/mattermost/mattermost/server/public/plugin"

	"github.com/mattermost/mattermost-plugin-crimewatch/server/formatter"
	"github.com/mattermost/mattermost-plugin-crimewatch/server/gateway"
)

// Post props set on messaging panel posts
const (
	PropIsSpam          = "crimewatch_is_spam"
	PropSpamProbability = "crimewatch_spam_probability"
	PropClassification  = "crimewatch_classification"
	PropAlertID         = "crimewatch_alert_id"
)

// Poster posts alerts and messages to Mattermost channels as the bot.
// This struct is stateless - it only holds immutable configuration (API and botID).
type Poster struct {
	api   plugin.API
	botID string
}

// New creates a new Poster instance.
func New(api plugin.API, botID string) *Poster {
	return &Poster{
		api:   api,
		botID: botID,
	}
}

// PostAlert posts a formatted camera alert to a Mattermost channel as a single post.
func (p *Poster) PostAlert(alert gateway.Alert, watchName, channelID string) error {
	attachment := formatter.FormatAlert(alert, watchName)

	post := &model.Post{
		UserId:    p.botID,
		ChannelId: channelID,
		Type:      model.PostTypeSlackAttachment,
		Props:     model.StringInterface{PropAlertID: alert.ID},
	}

	model.ParseSlackAttachment(post, []*model.SlackAttachment{attachment})

	if _, appErr := p.api.CreatePost(post); appErr != nil {
		return appErr
	}
	return nil
}

// PostMessage posts a messaging panel message with its spam verdict in the post props.
func (p *Poster) PostMessage(channelID, sender, content string, analysis gateway.SpamAnalysis) (*model.Post, error) {
	post := &model.Post{
		UserId:    p.botID,
		ChannelId: channelID,
		Message:   formatter.FormatMessage(sender, content, analysis),
		Props: model.StringInterface{
			PropIsSpam:          analysis.IsSpam,
			PropSpamProbability: analysis.SpamProbability,
			PropClassification:  analysis.Classification,
		},
	}

	created, appErr := p.api.CreatePost(post)
	if appErr != nil {
		return nil, appErr
	}
	return created, nil
}

// SendSpamWarning shows the spam warning to userID only.
func (p *Poster) SendSpamWarning(userID, channelID string, analysis gateway.SpamAnalysis) {
	post := &model.Post{
		UserId:    p.botID,
		ChannelId: channelID,
		Props:     model.StringInterface{},
	}
	model.ParseSlackAttachment(post, []*model.SlackAttachment{formatter.FormatSpamWarning(analysis)})

	p.api.SendEphemeralPost(userID, post)
}
