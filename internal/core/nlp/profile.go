package nlp

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type FeatureKind string

const (
	FeatureFuel         FeatureKind = "fuel"
	FeatureTransmission FeatureKind = "transmission"
	FeatureBody         FeatureKind = "body"
)

// Profile is the language/domain data the pipeline runs on. It is plain
// data so it can be swapped per market without touching the algorithms.
type Profile struct {
	Language          string             `yaml:"language"`
	Brands            []BrandEntry       `yaml:"brands"`
	Greetings         []string           `yaml:"greetings"`
	Stopwords         []string           `yaml:"stopwords"`
	IgnoredTokens     []string           `yaml:"ignored_tokens"`
	ShowTerms         []string           `yaml:"show_terms"`
	PriceTerms        []string           `yaml:"price_terms"`
	QuestionMarkers   []string           `yaml:"question_markers"`
	Features          []FeatureEntry     `yaml:"features"`
	Multipliers       map[string]float64 `yaml:"multipliers"`
	CurrencyMarkers   []string           `yaml:"currency_markers"`
	UnitWords         []string           `yaml:"unit_words"`
	HistoryLookback   int                `yaml:"history_lookback"`
	BrandWindowTokens int                `yaml:"brand_window_tokens"`
	Prompt            PromptTemplates    `yaml:"prompt"`
}

// BrandEntry maps every alias (any script) to one canonical brand.
type BrandEntry struct {
	Canonical string   `yaml:"canonical"`
	Aliases   []string `yaml:"aliases"`
}

// FeatureEntry is one canonical feature value with the terms that reveal it
// in a query and in a candidate snippet.
type FeatureEntry struct {
	Kind          FeatureKind `yaml:"kind"`
	Value         string      `yaml:"value"`
	QueryTerms    []string    `yaml:"query_terms"`
	DocumentTerms []string    `yaml:"document_terms"`
}

// PromptTemplates hold the fixed prompt sections. Snippet supports the
// {n} and {text} placeholders.
type PromptTemplates struct {
	System               string `yaml:"system"`
	ResultsHeader        string `yaml:"results_header"`
	Snippet              string `yaml:"snippet"`
	ResultsNote          string `yaml:"results_note"`
	QuestionHeader       string `yaml:"question_header"`
	Footer               string `yaml:"footer"`
	ShowResultsDirective string `yaml:"show_results_directive"`
	FocusDirective       string `yaml:"focus_directive"`
}

// LoadProfile reads a YAML profile from path. Sections missing from the
// file keep the values of DefaultProfile.
func LoadProfile(path string) (Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	return ParseProfile(raw)
}

func ParseProfile(raw []byte) (Profile, error) {
	profile := DefaultProfile()
	if err := yaml.Unmarshal(raw, &profile); err != nil {
		return Profile{}, fmt.Errorf("parse profile yaml: %w", err)
	}
	return profile, nil
}

// DefaultProfile is the Egyptian Arabic / English car-market profile.
func DefaultProfile() Profile {
	return Profile{
		Language: "ar-EG",
		Brands: []BrandEntry{
			{Canonical: "mg", Aliases: []string{"mg", "ام جي"}},
			{Canonical: "byd", Aliases: []string{"byd", "بي واي دي"}},
			{Canonical: "toyota", Aliases: []string{"toyota", "تويوتا"}},
			{Canonical: "hyundai", Aliases: []string{"hyundai", "هيونداي"}},
			{Canonical: "mercedes", Aliases: []string{"mercedes", "benz", "مرسيدس"}},
			{Canonical: "bmw", Aliases: []string{"bmw", "بي ام دبليو", "بي ام"}},
			{Canonical: "porsche", Aliases: []string{"porsche", "بورش"}},
			{Canonical: "ferrari", Aliases: []string{"ferrari", "فيراري"}},
			{Canonical: "lamborghini", Aliases: []string{"lamborghini", "لامبورجيني"}},
			{Canonical: "bentley", Aliases: []string{"bentley", "بنتلي"}},
			{Canonical: "rolls-royce", Aliases: []string{"rolls", "رولز"}},
			{Canonical: "audi", Aliases: []string{"audi", "اودي"}},
			{Canonical: "nissan", Aliases: []string{"nissan", "نيسان"}},
			{Canonical: "kia", Aliases: []string{"kia", "كيا"}},
			{Canonical: "ford", Aliases: []string{"ford", "فورد"}},
			{Canonical: "genesis", Aliases: []string{"genesis", "جينيسيس"}},
			{Canonical: "cupra", Aliases: []string{"cupra", "كوبرا"}},
			{Canonical: "peugeot", Aliases: []string{"peugeot", "بيجو"}},
			{Canonical: "chery", Aliases: []string{"chery", "شيري"}},
			{Canonical: "geely", Aliases: []string{"geely", "جيلي"}},
			{Canonical: "suzuki", Aliases: []string{"suzuki", "سوزوكي"}},
			{Canonical: "mitsubishi", Aliases: []string{"mitsubishi", "ميتسوبيشي"}},
			{Canonical: "skoda", Aliases: []string{"skoda", "سكودا"}},
			{Canonical: "subaru", Aliases: []string{"subaru", "سوبارو"}},
			{Canonical: "honda", Aliases: []string{"honda", "هوندا"}},
			{Canonical: "mazda", Aliases: []string{"mazda", "مازدا"}},
			{Canonical: "citroen", Aliases: []string{"citroen", "سيتروين"}},
			{Canonical: "renault", Aliases: []string{"renault", "رينو"}},
			{Canonical: "jeep", Aliases: []string{"jeep", "جيب"}},
			{Canonical: "opel", Aliases: []string{"opel", "اوبل"}},
		},
		Greetings: []string{
			"hi", "hello", "hey", "good morning", "good evening",
			"هاي", "هلو", "اهلا", "اهلا وسهلا", "اهلين", "مرحبا",
			"السلام عليكم", "سلام", "ازيك", "ازيكم", "عامل ايه",
			"صباح الخير", "مساء الخير", "صباح النور", "مساء النور",
		},
		Stopwords: []string{
			"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for",
			"of", "is", "me", "i",
			"في", "من", "على", "عن", "الى", "و", "يا", "انا", "ده", "دي",
		},
		IgnoredTokens: []string{
			"sedan", "suv", "hatchback", "coupe", "crossover", "fob",
			"automatic", "manual",
			"new", "used", "best", "price", "cost", "buy", "want", "need", "show",
			"details", "info", "information", "about", "car", "cars", "vehicle",
			"good", "bad", "review", "opinion", "vs", "compare", "tell", "more",
			"سيدان", "هاتشباك", "اس", "يو", "اوتوماتيك", "مانيوال",
			"جديد", "مستعمل", "سعر", "اسعار", "بكام", "بكم",
			"عربية", "عربيات", "سيارة", "سيارات",
			"تفاصيل", "معلومات", "صور", "شكل",
			"رايك", "ايه", "احسن", "افضل",
			"عايز", "عاوز", "محتاج", "ابغى", "اشوف", "كمان", "اكتر",
		},
		ShowTerms: []string{
			"وريني", "ورني", "عايز اشوف", "التفاصيل", "مواصفات", "اعرض", "شوفني",
			"show", "details", "tell me more", "more details", "قولي اكتر",
		},
		PriceTerms: []string{
			"الف", "الاف", "مليون", "جنيه", "egp", "budget", "ميزانيه", "ميزانيتي",
		},
		QuestionMarkers: []string{
			"سعر", "اسعار", "بكام", "بكم", "كام", "مواصفات",
			"price", "prices", "cost", "how much", "specs", "specifications",
		},
		Features: []FeatureEntry{
			{
				Kind:          FeatureFuel,
				Value:         "electric",
				QueryTerms:    []string{"كهربا", "كهرباء", "كهربائي", "كهربائية", "electric", "ev"},
				DocumentTerms: []string{"electric", "ev", "battery", "كهربا", "كهرباء", "كهربائي", "كهربائية"},
			},
			{
				Kind:          FeatureFuel,
				Value:         "hybrid",
				QueryTerms:    []string{"هايبرد", "hybrid"},
				DocumentTerms: []string{"hybrid", "هايبرد"},
			},
			{
				Kind:          FeatureFuel,
				Value:         "petrol",
				QueryTerms:    []string{"بنزين", "petrol", "gasoline"},
				DocumentTerms: []string{"petrol", "gasoline", "بنزين"},
			},
			{
				Kind:          FeatureFuel,
				Value:         "diesel",
				QueryTerms:    []string{"ديزل", "سولار", "diesel"},
				DocumentTerms: []string{"diesel", "ديزل", "سولار"},
			},
			{
				Kind:          FeatureTransmission,
				Value:         "automatic",
				QueryTerms:    []string{"اوتوماتيك", "اتوماتيك", "automatic", "cvt"},
				DocumentTerms: []string{"automatic", "cvt", "dct", "اوتوماتيك", "اتوماتيك"},
			},
			{
				Kind:          FeatureTransmission,
				Value:         "manual",
				QueryTerms:    []string{"مانيوال", "manual"},
				DocumentTerms: []string{"manual", "مانيوال"},
			},
			{
				Kind:          FeatureBody,
				Value:         "sedan",
				QueryTerms:    []string{"sedan", "سيدان"},
				DocumentTerms: []string{"sedan", "سيدان"},
			},
			{
				Kind:          FeatureBody,
				Value:         "suv",
				QueryTerms:    []string{"suv", "اس يو في", "crossover", "كروس اوفر"},
				DocumentTerms: []string{"suv", "crossover", "اس يو في", "كروس اوفر"},
			},
			{
				Kind:          FeatureBody,
				Value:         "hatchback",
				QueryTerms:    []string{"hatchback", "هاتشباك"},
				DocumentTerms: []string{"hatchback", "هاتشباك"},
			},
			{
				Kind:          FeatureBody,
				Value:         "coupe",
				QueryTerms:    []string{"coupe", "كوبيه"},
				DocumentTerms: []string{"coupe", "كوبيه"},
			},
		},
		Multipliers: map[string]float64{
			"k":        1e3,
			"الف":      1e3,
			"الاف":     1e3,
			"thousand": 1e3,
			"m":        1e6,
			"مليون":    1e6,
			"million":  1e6,
		},
		CurrencyMarkers:   []string{"egp", "جنيه", "le"},
		UnitWords: []string{
			"km", "kms", "kilometer", "kilometers", "كم", "كيلو", "كيلومتر",
			"mile", "miles", "ميل", "cc", "hp", "حصان", "kg", "كجم", "rpm", "nm",
		},
		HistoryLookback:   6,
		BrandWindowTokens: 2,
		Prompt:            defaultPromptTemplates(),
	}
}

func defaultPromptTemplates() PromptTemplates {
	return PromptTemplates{
		System: "You are \"Dalylak\" (دليلك), a friendly car assistant for the Egyptian car market.\n" +
			"Always answer in Egyptian Arabic. Only talk about cars.\n" +
			"Ask about budget, usage, body type and fuel before recommending.\n" +
			"Never list car names, prices or specs in your text: matching cars are shown to the user as cards.",
		ResultsHeader:  "## SEARCH RESULTS (Available Cars):",
		Snippet:        "## Result {n}\n## Content: {text}",
		ResultsNote:    "Note: These cars will appear in a 'cars' list below your message if you recommend them.",
		QuestionHeader: "## User Question:",
		Footer:         "جاوب على سؤال العميل باللهجة المصرية وبشكل مختصر.",
		ShowResultsDirective: "مهم جداً: بما إن فيه نتايج عربيات ظهرت في البحث، لازم وأنت بتشرح أي عربية منهم " +
			"تقول في آخر كلامك: 'شوف الخيارات دي!' عشان تظهر ككارت لليوزر.",
		FocusDirective: "تنبيه: لو العميل سأل عن عربية واحدة، اشرحها هي بس ومتتكلمش عن العربيات التانية اللي ظهرت في البحث.",
	}
}
