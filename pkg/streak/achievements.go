package streak

type Category string

const (
	CategoryProgress    Category = "progress"
	CategoryStreak      Category = "streak"
	CategoryKnowledge   Category = "knowledge"
	CategoryPrecision   Category = "precision"
	CategoryStudyTime   Category = "study_time"
	CategoryConsistency Category = "consistency"
)

// Condition selects the counter an achievement milestone is compared to.
type Condition string

const (
	ConditionSessions           Condition = "sessions"
	ConditionCardsPerDay        Condition = "cards_per_day"
	ConditionTotalCards         Condition = "total_cards"
	ConditionConsecutiveDays    Condition = "consecutive_days"
	ConditionStreakDays         Condition = "streak_days"
	ConditionDecksCreated       Condition = "decks_created"
	ConditionCardsCreated       Condition = "cards_created"
	ConditionSessionAccuracy    Condition = "session_accuracy"
	ConditionMonthlyAccuracy    Condition = "monthly_accuracy"
	ConditionSessionMinutes     Condition = "session_minutes"
	ConditionDailyMinutes       Condition = "daily_minutes"
	ConditionTotalMinutes       Condition = "total_minutes"
	ConditionOnTimeReviews      Condition = "on_time_reviews"
	ConditionAllDailyReviews    Condition = "all_daily_reviews"
	ConditionDaysWithoutOverdue Condition = "days_without_overdue"
)

type Achievement struct {
	ID          string
	Name        string
	Description string
	Milestone   int
	Category    Category
	Condition   Condition
}

// AchievementStatus is an achievement together with its per-user unlock state.
type AchievementStatus struct {
	Achievement
	Unlocked bool
}

// catalog is the static achievement set. Accuracy milestones are percentages,
// time milestones are minutes.
var catalog = []Achievement{
	{ID: "first-step", Name: "Primer Paso 🏁", Description: "Completa tu primera sesión de estudio.", Milestone: 1, Category: CategoryProgress, Condition: ConditionSessions},
	{ID: "getting-started", Name: "En Marcha 🚀", Description: "Estudia 10 tarjetas en un día.", Milestone: 10, Category: CategoryProgress, Condition: ConditionCardsPerDay},
	{ID: "review-master", Name: "Maestro del Repaso 📖", Description: "Revisa 100 tarjetas en total.", Milestone: 100, Category: CategoryProgress, Condition: ConditionTotalCards},
	{ID: "repetition-expert", Name: "Experto en Repetición 🔄", Description: "Supera las 1,000 tarjetas repasadas.", Milestone: 1000, Category: CategoryProgress, Condition: ConditionTotalCards},

	{ID: "first-streak", Name: "Primera Racha 🔥", Description: "Mantén una racha de 3 días.", Milestone: 3, Category: CategoryStreak, Condition: ConditionConsecutiveDays},
	{ID: "weekly-warrior", Name: "Guerrero Semanal 📅", Description: "Mantén una racha de 7 días.", Milestone: 7, Category: CategoryStreak, Condition: ConditionConsecutiveDays},
	{ID: "monthly-master", Name: "Maestro Mensual 📆", Description: "Mantén una racha de 30 días.", Milestone: 30, Category: CategoryStreak, Condition: ConditionConsecutiveDays},
	{ID: "never-fails", Name: "Nunca Falla 💎", Description: "Mantén una racha de 100 días.", Milestone: 100, Category: CategoryStreak, Condition: ConditionStreakDays},

	{ID: "first-deck", Name: "Primer Mazo 🃏", Description: "Crea tu primer mazo de tarjetas.", Milestone: 1, Category: CategoryKnowledge, Condition: ConditionDecksCreated},
	{ID: "knowledge-architect", Name: "Arquitecto del Conocimiento 🏗", Description: "Crea 10 mazos.", Milestone: 10, Category: CategoryKnowledge, Condition: ConditionDecksCreated},
	{ID: "knowledge-bank", Name: "Banco de Conocimiento 🎓", Description: "Crea 100 tarjetas en total.", Milestone: 100, Category: CategoryKnowledge, Condition: ConditionCardsCreated},
	{ID: "card-king", Name: "Rey de las Tarjetas 👑", Description: "Crea 1,000 tarjetas.", Milestone: 1000, Category: CategoryKnowledge, Condition: ConditionCardsCreated},

	{ID: "good-memory", Name: "Buena Memoria 🧠", Description: "Responde correctamente el 70% de las tarjetas en una sesión.", Milestone: 70, Category: CategoryPrecision, Condition: ConditionSessionAccuracy},
	{ID: "elephant-memory", Name: "Memoria de Elefante 🏆", Description: "Responde correctamente el 90% en una sesión.", Milestone: 90, Category: CategoryPrecision, Condition: ConditionSessionAccuracy},
	{ID: "memory-genius", Name: "Genio del Recuerdo 🌟", Description: "Mantén un promedio del 95% en 30 días.", Milestone: 95, Category: CategoryPrecision, Condition: ConditionMonthlyAccuracy},

	{ID: "mini-session", Name: "Mini sesión ⏳", Description: "Estudia al menos 5 minutos en una sesión.", Milestone: 5, Category: CategoryStudyTime, Condition: ConditionSessionMinutes},
	{ID: "total-focus", Name: "Foco Total ⏰", Description: "Estudia 25 minutos seguidos.", Milestone: 25, Category: CategoryStudyTime, Condition: ConditionSessionMinutes},
	{ID: "intense-mode", Name: "Modo Intenso 🔥", Description: "Estudia 1 hora en un solo día.", Milestone: 60, Category: CategoryStudyTime, Condition: ConditionDailyMinutes},
	{ID: "study-marathon-time", Name: "Maratón de Estudio 💪", Description: "Acumula 10 horas totales de estudio.", Milestone: 600, Category: CategoryStudyTime, Condition: ConditionTotalMinutes},

	{ID: "just-in-time", Name: "Revisión Justo a Tiempo ⏲", Description: "Revisa una tarjeta justo cuando estaba programada.", Milestone: 1, Category: CategoryConsistency, Condition: ConditionOnTimeReviews},
	{ID: "always-on-time", Name: "Siempre a Tiempo ⏳", Description: "Revisa todas las tarjetas pendientes en el día.", Milestone: 1, Category: CategoryConsistency, Condition: ConditionAllDailyReviews},
	{ID: "no-debts", Name: "Sin Deudas ✅", Description: "Mantén 0 tarjetas atrasadas por una semana.", Milestone: 7, Category: CategoryConsistency, Condition: ConditionDaysWithoutOverdue},
}

// Catalog returns the static achievement catalog.
func Catalog() []Achievement {
	out := make([]Achievement, len(catalog))
	copy(out, catalog)
	return out
}
