package generator

import (
	"fmt"
	"math/rand"

	"github.com/s2010/story-twister/internal/language"
)

// TwistMarker prefixes every twist turn's content.
const TwistMarker = "🌪️"

var arabicStarters = []string{
	"كان يامكان في قديم الزمان وسالف العصر والآوان، كان هناك شاب يدعى أحمد يعيش في قرية صغيرة على ضفاف النهر...",
	"كان يامكان في قديم الزمان وسالف العصر والآوان، كانت هناك أميرة جميلة تسكن في قصر عالٍ محاط بالحدائق الساحرة...",
	"كان يامكان في قديم الزمان وسالف العصر والآوان، كان هناك تاجر حكيم يسافر عبر الصحراء الشاسعة...",
	"كان يامكان في قديم الزمان وسالف العصر والآوان، كان هناك صياد فقير يعيش مع زوجته في كوخ صغير...",
	"كان يامكان في قديم الزمان وسالف العصر والآوان، كانت هناك مدينة عظيمة تشتهر بأسواقها النابضة بالحياة...",
	"كان يامكان في قديم الزمان وسالف العصر والآوان، كان هناك حكيم عجوز يسكن في كهف على قمة الجبل...",
	"كان يامكان في قديم الزمان وسالف العصر والآوان، كانت هناك فتاة ذكية تحب قراءة الكتب القديمة...",
	"كان يامكان في قديم الزمان وسالف العصر والآوان، كان هناك ملك عادل يحكم مملكة واسعة بالحكمة والعدل...",
}

var englishStarters = []string{
	"Once upon a time, in a land far, far away, there lived a young adventurer named Alex who dreamed of exploring distant kingdoms...",
	"In the days of old, when magic still flowed through the world, there was a beautiful princess who lived in a tall castle surrounded by enchanted gardens...",
	"Long ago, in times forgotten, there was a wise merchant who traveled across vast deserts in search of rare treasures...",
	"Once upon a time, there was a poor fisherman who lived with his wife in a small cottage by the sea...",
	"In ancient times, there was a great city famous for its bustling markets and vibrant life...",
	"Once upon a time, there was an old sage who lived in a cave atop the highest mountain...",
	"Long ago, there was a clever young woman who loved reading ancient books and solving mysteries...",
	"In the olden days, there was a just king who ruled a vast kingdom with wisdom and fairness...",
}

var arabicTwistFallbacks = []string{
	"🌪️ وفجأة، ظهر من العدم رجل غامض يحمل مفتاحاً ذهبياً...",
	"🌪️ وإذا بالأرض تهتز وتنفتح عن كنز مدفون منذ قرون...",
	"🌪️ وفي تلك اللحظة، سمع صوتاً يناديه من السماء...",
	"🌪️ وبينما كان يمشي، رأى ضوءاً ساطعاً يخرج من الغابة...",
	"🌪️ وفجأة، تحول كل شيء حوله إلى ذهب خالص...",
}

var englishTwistFallbacks = []string{
	"🌪️ Suddenly, a mysterious figure emerged from the shadows carrying a golden key...",
	"🌪️ At that moment, the ground began to shake and revealed a hidden treasure...",
	"🌪️ Just then, a voice called out from the heavens above...",
	"🌪️ As they walked, a brilliant light appeared from the forest...",
	"🌪️ Suddenly, everything around them turned to pure gold...",
}

// StarterPrompt picks a language-appropriate seed sentence for a new story.
// The language is detected from the story title, not the story body.
func StarterPrompt(title string) string {
	if language.Detect(title) == language.Arabic {
		return arabicStarters[rand.Intn(len(arabicStarters))]
	}
	return englishStarters[rand.Intn(len(englishStarters))]
}

func twistFallback(lang language.Lang) string {
	if lang == language.Arabic {
		return arabicTwistFallbacks[rand.Intn(len(arabicTwistFallbacks))]
	}
	return englishTwistFallbacks[rand.Intn(len(englishTwistFallbacks))]
}

func twistPrompt(lang language.Lang, storyText string) string {
	if lang == language.Arabic {
		return fmt.Sprintf(`أنت مساعد إبداعي لكتابة القصص باللغة العربية. بناءً على مقطع القصة التالي، اكتب جملة واحدة تحتوي على منعطف درامي مفاجئ يغير مجرى القصة. يجب أن يكون المنعطف غير متوقع ولكن منطقي ضمن سياق القصة.

القصة حتى الآن:
%s

اكتب فقط جملة المنعطف باللغة العربية (بدون علامات اقتباس أو تفسيرات):`, storyText)
	}
	return fmt.Sprintf(`You are a creative storytelling assistant. Given the following story excerpt, generate a single dramatic plot twist sentence that would surprise readers and change the direction of the story. The twist should be unexpected but logical within the story context.

Story so far:
%s

Generate only the twist sentence in English (no quotes, no explanations):`, storyText)
}

func feedbackPrompt(lang language.Lang, sum AnalysisSummary) string {
	excerpt := sum.StoryText
	if runes := []rune(excerpt); len(runes) > 500 {
		excerpt = string(runes[:500])
	}
	if lang == language.Arabic {
		return fmt.Sprintf(`حلل جلسة سرد القصص التعاونية هذه وقدم تعليقات موجزة ومشجعة:

محتوى القصة: %s...
إجمالي الأدوار: %d
المشاركون: %d
المدة: %d دقيقة

قدم تعليقات من جملتين إلى ثلاث جمل لكل فئة:
1. الإبداع (النتيجة: %d/100)
2. المشاركة (النتيجة: %d/100)
3. التعاون (النتيجة: %d/100)

اجعل التعليقات إيجابية وبناءة باللغة العربية.`,
			excerpt, sum.TotalTurns, sum.UniqueParticipants, sum.DurationMinutes,
			sum.CreativityScore, sum.EngagementScore, sum.CollaborationScore)
	}
	return fmt.Sprintf(`Analyze this collaborative storytelling session and provide brief, encouraging feedback:

Story Content: %s...
Total Turns: %d
Participants: %d
Duration: %d minutes

Provide 2-3 sentence feedback for each category:
1. Creativity (score: %d/100)
2. Engagement (score: %d/100)
3. Collaboration (score: %d/100)

Keep feedback positive and constructive in English.`,
		excerpt, sum.TotalTurns, sum.UniqueParticipants, sum.DurationMinutes,
		sum.CreativityScore, sum.EngagementScore, sum.CollaborationScore)
}

// fallbackFeedback synthesizes deterministic template feedback from the
// analysis counters.
func fallbackFeedback(lang language.Lang, sum AnalysisSummary) Feedback {
	if lang == language.Arabic {
		return Feedback{
			Creativity:    fmt.Sprintf("مفردات إبداعية رائعة مع %d كلمة فريدة! تُظهر القصة خيالاً إبداعياً مميزاً.", sum.UniqueWords),
			Engagement:    fmt.Sprintf("مشاركة قوية بمعدل %.1f دور لكل شخص!", sum.AvgTurnsPerAuthor),
			Collaboration: fmt.Sprintf("عمل جماعي ممتاز مع %d انتقال سلس بين %d مشارك!", sum.Handoffs, sum.UniqueParticipants),
		}
	}
	return Feedback{
		Creativity:    fmt.Sprintf("Great creative vocabulary with %d unique words! The story shows imaginative storytelling.", sum.UniqueWords),
		Engagement:    fmt.Sprintf("Strong participation with %.1f turns per person on average!", sum.AvgTurnsPerAuthor),
		Collaboration: fmt.Sprintf("Excellent teamwork with %d smooth transitions between %d participants!", sum.Handoffs, sum.UniqueParticipants),
	}
}
