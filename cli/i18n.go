package cli

import "fmt"

type messages struct {
	title        string
	noTodo       string
	all          string
	active       string
	completed    string
	statistics   string
	pomodoro     string
	every        string
	overdue      string
	columns      map[string]string
	priorities   map[string]string
	categories   map[string]string
	recurrences  map[string]string
	weekdays     [7]string
	modes        map[string]string
	pendingNote  string
	queuedNote   string
	syncedNote   string
	darkMode     string
	language     string
	viewMode     string
	on, off      string
	completionBy string
}

var translations = map[string]*messages{
	"tr": {
		title:      "Todo Uygulaması",
		noTodo:     "Henüz görev yok.",
		all:        "Hepsi",
		active:     "Yapılacak",
		completed:  "Tamamlandı",
		statistics: "İstatistikler",
		pomodoro:   "Pomodoro Zamanlayıcı",
		every:      "Her",
		overdue:    "Gecikmiş",
		columns: map[string]string{
			"backlog": "Bekleyen", "todo": "Yapılacak", "inProgress": "Devam Ediyor", "done": "Tamamlandı",
		},
		priorities: map[string]string{"high": "Yüksek", "medium": "Orta", "low": "Düşük"},
		categories: map[string]string{
			"work": "İş", "personal": "Kişisel", "health": "Sağlık", "shopping": "Alışveriş",
			"finance": "Finans", "education": "Eğitim", "other": "Diğer",
		},
		recurrences:  map[string]string{"daily": "Günlük", "weekly": "Haftalık", "monthly": "Aylık", "yearly": "Yıllık"},
		weekdays:     [7]string{"Paz", "Pzt", "Sal", "Çar", "Per", "Cum", "Cmt"},
		modes:        map[string]string{"work": "Çalışma", "shortBreak": "Kısa Mola", "longBreak": "Uzun Mola"},
		pendingNote:  "%d değişiklik sunucuya gönderilmeyi bekliyor",
		queuedNote:   "çevrimdışı: değişiklik sıraya alındı",
		syncedNote:   "senkronize edildi",
		darkMode:     "Karanlık Mod",
		language:     "Dil",
		viewMode:     "Görünüm Modu",
		on:           "Açık",
		off:          "Kapalı",
		completionBy: "Son 30 gün tamamlanan",
	},
	"en": {
		title:      "Todo App",
		noTodo:     "No tasks yet.",
		all:        "All",
		active:     "Active",
		completed:  "Completed",
		statistics: "Statistics",
		pomodoro:   "Pomodoro Timer",
		every:      "Every",
		overdue:    "Overdue",
		columns: map[string]string{
			"backlog": "Backlog", "todo": "To Do", "inProgress": "In Progress", "done": "Done",
		},
		priorities: map[string]string{"high": "High", "medium": "Medium", "low": "Low"},
		categories: map[string]string{
			"work": "Work", "personal": "Personal", "health": "Health", "shopping": "Shopping",
			"finance": "Finance", "education": "Education", "other": "Other",
		},
		recurrences:  map[string]string{"daily": "Daily", "weekly": "Weekly", "monthly": "Monthly", "yearly": "Yearly"},
		weekdays:     [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
		modes:        map[string]string{"work": "Work", "shortBreak": "Short Break", "longBreak": "Long Break"},
		pendingNote:  "%d change(s) waiting to be sent to the server",
		queuedNote:   "offline: change queued",
		syncedNote:   "synced",
		darkMode:     "Dark Mode",
		language:     "Language",
		viewMode:     "View Mode",
		on:           "On",
		off:          "Off",
		completionBy: "Completed in the last 30 days",
	},
}

// msgs returns the messages for lang, falling back to Turkish.
func msgs(lang string) *messages {
	if m, ok := translations[lang]; ok {
		return m
	}
	return translations["tr"]
}

// label looks key up in table, echoing the key when it has no translation.
func label(table map[string]string, key string) string {
	if v, ok := table[key]; ok {
		return v
	}
	return key
}

func (m *messages) pending(n int) string {
	return fmt.Sprintf(m.pendingNote, n)
}
