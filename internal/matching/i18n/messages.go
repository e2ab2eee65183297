// Package i18n holds the user-facing strings of the matching engine.
package i18n

import (
	"fmt"
	"strings"
)

// Locale is a supported UI language.
type Locale string

const (
	EN Locale = "en"
	AR Locale = "ar"
	FR Locale = "fr"
)

// Default is used whenever a requested locale is unknown.
const Default = EN

// Message keys.
const (
	NoMatch = "no_match"

	FieldPrimary   = "field.primary"
	FieldSecondary = "field.secondary"

	LevelExact = "level.exact"
	LevelMulti = "level.multi"

	FundingFull    = "funding.full"
	FundingPartial = "funding.partial"

	DeadlineUrgent      = "deadline.urgent"
	DeadlineIdeal       = "deadline.ideal"
	DeadlineComfortable = "deadline.comfortable"
	DeadlineDistant     = "deadline.distant"

	CountrySpeaksLocal = "country.speaks_local"
	CountryEnglish     = "country.english"
	CountryUnknown     = "country.unknown"
	CountryNoLanguage  = "country.no_language"

	DigestSubject = "digest.subject"
	DigestIntro   = "digest.intro"
	DigestLine    = "digest.line"
)

var catalog = map[Locale]map[string]string{
	EN: {
		NoMatch:             "No scholarships match your profile right now. Try widening your fields of study or funding preference.",
		FieldPrimary:        "Matches your main field of study (%s).",
		FieldSecondary:      "Matches one of your other fields of study (%s).",
		LevelExact:          "Designed specifically for %s students.",
		LevelMulti:          "Open to %s students among other levels.",
		FundingFull:         "Fully funded.",
		FundingPartial:      "Partially funded; plan for remaining costs.",
		DeadlineUrgent:      "Deadline in %d days; apply immediately.",
		DeadlineIdeal:       "Deadline in %d days; enough time to prepare a strong application.",
		DeadlineComfortable: "Deadline in %d days.",
		DeadlineDistant:     "Deadline in %d days; consider it for a later cycle.",
		CountrySpeaksLocal:  "You speak a language used in %s.",
		CountryEnglish:      "Programs in %s are commonly taught in English.",
		CountryUnknown:      "Language requirements for %s are not known.",
		CountryNoLanguage:   "You may need to learn the local language of %s.",
		DigestSubject:       "Your scholarship matches are ready",
		DigestIntro:         "We found %d scholarships that fit your profile. Your top matches:",
		DigestLine:          "%s: score %d (%s), deadline %s",
	},
	AR: {
		NoMatch:             "لا توجد منح تطابق ملفك الشخصي حاليًا. جرّب توسيع مجالات الدراسة أو تفضيل التمويل.",
		FieldPrimary:        "تطابق مجال دراستك الرئيسي (%s).",
		FieldSecondary:      "تطابق أحد مجالات دراستك الأخرى (%s).",
		LevelExact:          "مخصصة لطلاب مرحلة %s.",
		LevelMulti:          "متاحة لطلاب مرحلة %s ضمن مراحل أخرى.",
		FundingFull:         "ممولة بالكامل.",
		FundingPartial:      "ممولة جزئيًا؛ خطط للتكاليف المتبقية.",
		DeadlineUrgent:      "الموعد النهائي بعد %d أيام؛ قدّم فورًا.",
		DeadlineIdeal:       "الموعد النهائي بعد %d يومًا؛ لديك وقت كافٍ لإعداد طلب قوي.",
		DeadlineComfortable: "الموعد النهائي بعد %d يومًا.",
		DeadlineDistant:     "الموعد النهائي بعد %d يومًا؛ يمكنك التخطيط لها لاحقًا.",
		CountrySpeaksLocal:  "تتحدث لغة مستخدمة في %s.",
		CountryEnglish:      "البرامج في %s تُدرَّس غالبًا باللغة الإنجليزية.",
		CountryUnknown:      "متطلبات اللغة في %s غير معروفة.",
		CountryNoLanguage:   "قد تحتاج إلى تعلم اللغة المحلية في %s.",
		DigestSubject:       "نتائج مطابقة المنح جاهزة",
		DigestIntro:         "وجدنا %d منحة تناسب ملفك الشخصي. أفضل النتائج:",
		DigestLine:          "%s: النتيجة %d (%s)، الموعد النهائي %s",
	},
	FR: {
		NoMatch:             "Aucune bourse ne correspond à votre profil pour le moment. Essayez d'élargir vos domaines d'études ou votre préférence de financement.",
		FieldPrimary:        "Correspond à votre domaine d'études principal (%s).",
		FieldSecondary:      "Correspond à l'un de vos autres domaines d'études (%s).",
		LevelExact:          "Conçue spécifiquement pour les étudiants en %s.",
		LevelMulti:          "Ouverte aux étudiants en %s, entre autres niveaux.",
		FundingFull:         "Entièrement financée.",
		FundingPartial:      "Partiellement financée ; prévoyez les frais restants.",
		DeadlineUrgent:      "Date limite dans %d jours ; postulez immédiatement.",
		DeadlineIdeal:       "Date limite dans %d jours ; assez de temps pour préparer un bon dossier.",
		DeadlineComfortable: "Date limite dans %d jours.",
		DeadlineDistant:     "Date limite dans %d jours ; à envisager pour un cycle ultérieur.",
		CountrySpeaksLocal:  "Vous parlez une langue utilisée en %s.",
		CountryEnglish:      "Les programmes en %s sont souvent enseignés en anglais.",
		CountryUnknown:      "Les exigences linguistiques pour %s ne sont pas connues.",
		CountryNoLanguage:   "Vous devrez peut-être apprendre la langue locale de %s.",
		DigestSubject:       "Vos bourses correspondantes sont prêtes",
		DigestIntro:         "Nous avons trouvé %d bourses adaptées à votre profil. Vos meilleurs résultats :",
		DigestLine:          "%s : score %d (%s), date limite %s",
	},
}

// Parse normalizes a locale tag such as "fr-FR" and falls back to Default.
func Parse(tag string) Locale {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	if _, ok := catalog[Locale(tag)]; ok {
		return Locale(tag)
	}
	return Default
}

// Supported reports whether the locale has its own catalog.
func Supported(l Locale) bool {
	_, ok := catalog[l]
	return ok
}

// T renders a message in the given locale, falling back to English for
// unknown locales or missing keys.
func T(l Locale, key string, args ...interface{}) string {
	format, ok := catalog[l][key]
	if !ok {
		format, ok = catalog[Default][key]
		if !ok {
			return key
		}
	}
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
