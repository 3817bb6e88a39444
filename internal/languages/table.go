package languages

// builtinTable is the default language directory. Aliases and flags must be
// globally unique across entries; build rejects the table otherwise.
// Shared-country flags (🇨🇭, 🇧🇪, 🇨🇦, 🇵🇭, 🇮🇳) resolve to exactly one code,
// with the alternate languages reachable by alias only.
var builtinTable = []Entry{
	{Code: "en", Name: "English", NativeName: "English", Premium: true, Free: true,
		Aliases: []string{"english", "eng", "en-us", "en-gb", "en-au"},
		Flags:   []string{"🇺🇸", "🇬🇧", "🇦🇺", "🇳🇿", "🇮🇪", "🇨🇦"}},
	{Code: "es", Name: "Spanish", NativeName: "Español", Premium: true, Free: true,
		Aliases: []string{"spanish", "español", "espanol", "castilian", "es-mx", "es-419"},
		Flags:   []string{"🇪🇸", "🇲🇽", "🇦🇷", "🇨🇴", "🇨🇱", "🇵🇪"}},
	{Code: "fr", Name: "French", NativeName: "Français", Premium: true, Free: true,
		Aliases: []string{"french", "français", "francais", "fr-ca"},
		Flags:   []string{"🇫🇷"}},
	{Code: "de", Name: "German", NativeName: "Deutsch", Premium: true, Free: true,
		Aliases: []string{"german", "deutsch", "de-at"},
		Flags:   []string{"🇩🇪", "🇦🇹", "🇨🇭"}},
	{Code: "it", Name: "Italian", NativeName: "Italiano", Premium: true, Free: true,
		Aliases: []string{"italian", "italiano"},
		Flags:   []string{"🇮🇹"}},
	{Code: "pt", Name: "Portuguese", NativeName: "Português", Premium: true, Free: true,
		Aliases: []string{"portuguese", "português", "portugues", "pt-br", "pt-pt", "brazilian"},
		Flags:   []string{"🇵🇹", "🇧🇷"}},
	{Code: "nl", Name: "Dutch", NativeName: "Nederlands", Premium: true, Free: true,
		Aliases: []string{"dutch", "nederlands", "flemish"},
		Flags:   []string{"🇳🇱", "🇧🇪"}},
	{Code: "ru", Name: "Russian", NativeName: "Русский", Premium: true, Free: true,
		Aliases: []string{"russian", "русский"},
		Flags:   []string{"🇷🇺"}},
	{Code: "uk", Name: "Ukrainian", NativeName: "Українська", Premium: true, Free: true,
		Aliases: []string{"ukrainian", "українська"},
		Flags:   []string{"🇺🇦"}},
	{Code: "pl", Name: "Polish", NativeName: "Polski", Premium: true, Free: true,
		Aliases: []string{"polish", "polski"},
		Flags:   []string{"🇵🇱"}},
	{Code: "cs", Name: "Czech", NativeName: "Čeština", Premium: true, Free: true,
		Aliases: []string{"czech", "čeština", "cestina"},
		Flags:   []string{"🇨🇿"}},
	{Code: "sk", Name: "Slovak", NativeName: "Slovenčina", Premium: true, Free: true,
		Aliases: []string{"slovak"},
		Flags:   []string{"🇸🇰"}},
	{Code: "sl", Name: "Slovenian", NativeName: "Slovenščina", Premium: true, Free: true,
		Aliases: []string{"slovenian", "slovene"},
		Flags:   []string{"🇸🇮"}},
	{Code: "bg", Name: "Bulgarian", NativeName: "Български", Premium: true, Free: true,
		Aliases: []string{"bulgarian"},
		Flags:   []string{"🇧🇬"}},
	{Code: "ro", Name: "Romanian", NativeName: "Română", Premium: true, Free: true,
		Aliases: []string{"romanian", "română", "romana"},
		Flags:   []string{"🇷🇴"}},
	{Code: "hu", Name: "Hungarian", NativeName: "Magyar", Premium: true, Free: true,
		Aliases: []string{"hungarian", "magyar"},
		Flags:   []string{"🇭🇺"}},
	{Code: "el", Name: "Greek", NativeName: "Ελληνικά", Premium: true, Free: true,
		Aliases: []string{"greek", "ελληνικά"},
		Flags:   []string{"🇬🇷", "🇨🇾"}},
	{Code: "da", Name: "Danish", NativeName: "Dansk", Premium: true, Free: true,
		Aliases: []string{"danish", "dansk"},
		Flags:   []string{"🇩🇰"}},
	{Code: "sv", Name: "Swedish", NativeName: "Svenska", Premium: true, Free: true,
		Aliases: []string{"swedish", "svenska"},
		Flags:   []string{"🇸🇪"}},
	{Code: "nb", Name: "Norwegian", NativeName: "Norsk Bokmål", Premium: true, Free: true,
		Aliases: []string{"norwegian", "norsk", "bokmål", "bokmal", "no"},
		Flags:   []string{"🇳🇴"}},
	{Code: "fi", Name: "Finnish", NativeName: "Suomi", Premium: true, Free: true,
		Aliases: []string{"finnish", "suomi"},
		Flags:   []string{"🇫🇮"}},
	{Code: "et", Name: "Estonian", NativeName: "Eesti", Premium: true, Free: true,
		Aliases: []string{"estonian", "eesti"},
		Flags:   []string{"🇪🇪"}},
	{Code: "lv", Name: "Latvian", NativeName: "Latviešu", Premium: true, Free: true,
		Aliases: []string{"latvian"},
		Flags:   []string{"🇱🇻"}},
	{Code: "lt", Name: "Lithuanian", NativeName: "Lietuvių", Premium: true, Free: true,
		Aliases: []string{"lithuanian"},
		Flags:   []string{"🇱🇹"}},
	{Code: "tr", Name: "Turkish", NativeName: "Türkçe", Premium: true, Free: true,
		Aliases: []string{"turkish", "türkçe", "turkce"},
		Flags:   []string{"🇹🇷"}},
	{Code: "id", Name: "Indonesian", NativeName: "Bahasa Indonesia", Premium: true, Free: true,
		Aliases: []string{"indonesian", "bahasa indonesia"},
		Flags:   []string{"🇮🇩"}},
	{Code: "ja", Name: "Japanese", NativeName: "日本語", Premium: true, Free: true,
		Aliases: []string{"japanese", "日本語", "jp"},
		Flags:   []string{"🇯🇵"}},
	{Code: "ko", Name: "Korean", NativeName: "한국어", Premium: true, Free: true,
		Aliases: []string{"korean", "한국어", "kr"},
		Flags:   []string{"🇰🇷"}},
	{Code: "zh", Name: "Chinese", NativeName: "中文", Premium: true, Free: true,
		Aliases: []string{"chinese", "mandarin", "中文", "zh-cn", "zh-tw", "zh-hans", "zh-hant", "cn"},
		Flags:   []string{"🇨🇳", "🇹🇼", "🇭🇰"}},
	{Code: "ar", Name: "Arabic", NativeName: "العربية", Premium: true, Free: true, RTL: true,
		Aliases: []string{"arabic", "العربية"},
		Flags:   []string{"🇸🇦", "🇦🇪", "🇪🇬"}},
	{Code: "he", Name: "Hebrew", NativeName: "עברית", Free: true, RTL: true,
		Aliases: []string{"hebrew", "iw", "עברית"},
		Flags:   []string{"🇮🇱"}},
	{Code: "fa", Name: "Persian", NativeName: "فارسی", Free: true, RTL: true,
		Aliases: []string{"persian", "farsi"},
		Flags:   []string{"🇮🇷"}},
	{Code: "ur", Name: "Urdu", NativeName: "اردو", Free: true, RTL: true,
		Aliases: []string{"urdu"},
		Flags:   []string{"🇵🇰"}},
	{Code: "hi", Name: "Hindi", NativeName: "हिन्दी", Free: true,
		Aliases: []string{"hindi", "हिन्दी"},
		Flags:   []string{"🇮🇳"}},
	{Code: "bn", Name: "Bengali", NativeName: "বাংলা", Free: true,
		Aliases: []string{"bengali", "bangla"},
		Flags:   []string{"🇧🇩"}},
	{Code: "ta", Name: "Tamil", NativeName: "தமிழ்", Free: true,
		Aliases: []string{"tamil"}},
	{Code: "te", Name: "Telugu", NativeName: "తెలుగు", Free: true,
		Aliases: []string{"telugu"}},
	{Code: "mr", Name: "Marathi", NativeName: "मराठी", Free: true,
		Aliases: []string{"marathi"}},
	{Code: "pa", Name: "Punjabi", NativeName: "ਪੰਜਾਬੀ", Free: true,
		Aliases: []string{"punjabi", "panjabi"}},
	{Code: "gu", Name: "Gujarati", NativeName: "ગુજરાતી", Free: true,
		Aliases: []string{"gujarati"}},
	{Code: "ne", Name: "Nepali", NativeName: "नेपाली", Free: true,
		Aliases: []string{"nepali"},
		Flags:   []string{"🇳🇵"}},
	{Code: "ms", Name: "Malay", NativeName: "Bahasa Melayu", Free: true,
		Aliases: []string{"malay", "melayu", "bahasa melayu"},
		Flags:   []string{"🇲🇾"}},
	{Code: "vi", Name: "Vietnamese", NativeName: "Tiếng Việt", Free: true,
		Aliases: []string{"vietnamese", "tiếng việt"},
		Flags:   []string{"🇻🇳"}},
	{Code: "th", Name: "Thai", NativeName: "ไทย", Free: true,
		Aliases: []string{"thai", "ไทย"},
		Flags:   []string{"🇹🇭"}},
	{Code: "tl", Name: "Filipino", NativeName: "Tagalog", Free: true,
		Aliases: []string{"filipino", "tagalog", "fil"},
		Flags:   []string{"🇵🇭"}},
	{Code: "km", Name: "Khmer", NativeName: "ខ្មែរ",
		Aliases: []string{"khmer", "cambodian"},
		Flags:   []string{"🇰🇭"}},
	{Code: "lo", Name: "Lao", NativeName: "ລາວ",
		Aliases: []string{"lao", "laotian"},
		Flags:   []string{"🇱🇦"}},
	{Code: "my", Name: "Burmese", NativeName: "မြန်မာ",
		Aliases: []string{"burmese", "myanmar"},
		Flags:   []string{"🇲🇲"}},
	{Code: "si", Name: "Sinhala", NativeName: "සිංහල",
		Aliases: []string{"sinhala", "sinhalese"},
		Flags:   []string{"🇱🇰"}},
	{Code: "sw", Name: "Swahili", NativeName: "Kiswahili",
		Aliases: []string{"swahili", "kiswahili"},
		Flags:   []string{"🇰🇪", "🇹🇿"}},
	{Code: "am", Name: "Amharic", NativeName: "አማርኛ",
		Aliases: []string{"amharic"},
		Flags:   []string{"🇪🇹"}},
	{Code: "ha", Name: "Hausa", NativeName: "Hausa",
		Aliases: []string{"hausa"}},
	{Code: "yo", Name: "Yoruba", NativeName: "Yorùbá",
		Aliases: []string{"yoruba"}},
	{Code: "zu", Name: "Zulu", NativeName: "isiZulu",
		Aliases: []string{"zulu"},
		Flags:   []string{"🇿🇦"}},
	{Code: "af", Name: "Afrikaans", NativeName: "Afrikaans", Free: true,
		Aliases: []string{"afrikaans"}},
	{Code: "sq", Name: "Albanian", NativeName: "Shqip", Free: true,
		Aliases: []string{"albanian", "shqip"},
		Flags:   []string{"🇦🇱"}},
	{Code: "sr", Name: "Serbian", NativeName: "Српски", Free: true,
		Aliases: []string{"serbian", "српски"},
		Flags:   []string{"🇷🇸"}},
	{Code: "hr", Name: "Croatian", NativeName: "Hrvatski", Free: true,
		Aliases: []string{"croatian", "hrvatski"},
		Flags:   []string{"🇭🇷"}},
	{Code: "bs", Name: "Bosnian", NativeName: "Bosanski", Free: true,
		Aliases: []string{"bosnian"},
		Flags:   []string{"🇧🇦"}},
	{Code: "mk", Name: "Macedonian", NativeName: "Македонски", Free: true,
		Aliases: []string{"macedonian"},
		Flags:   []string{"🇲🇰"}},
	{Code: "ka", Name: "Georgian", NativeName: "ქართული", Free: true,
		Aliases: []string{"georgian"},
		Flags:   []string{"🇬🇪"}},
	{Code: "hy", Name: "Armenian", NativeName: "Հայերեն", Free: true,
		Aliases: []string{"armenian"},
		Flags:   []string{"🇦🇲"}},
	{Code: "az", Name: "Azerbaijani", NativeName: "Azərbaycan", Free: true,
		Aliases: []string{"azerbaijani", "azeri"},
		Flags:   []string{"🇦🇿"}},
	{Code: "kk", Name: "Kazakh", NativeName: "Қазақша", Free: true,
		Aliases: []string{"kazakh"},
		Flags:   []string{"🇰🇿"}},
	{Code: "uz", Name: "Uzbek", NativeName: "Oʻzbekcha",
		Aliases: []string{"uzbek"},
		Flags:   []string{"🇺🇿"}},
	{Code: "mn", Name: "Mongolian", NativeName: "Монгол",
		Aliases: []string{"mongolian"},
		Flags:   []string{"🇲🇳"}},
}
