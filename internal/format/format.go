// Package format renders broadcast messages for finished drafts. The
// templates are plain text (no parse mode): channel posts must survive any
// user-entered punctuation.
package format

import (
	"fmt"
	"strings"

	"estatebot/internal/session"
)

const (
	// maxDescription keeps property posts below the platform message limit
	// even with the contact footer attached.
	maxDescription = 1000
	maxNewsBody    = 2000
)

const contactFooter = `📩Контакты:
📱 Консультация с агентами : @Armonie_agentie_imobiliare
📞 +380682656442 - Сергей
🌐Наш сайт c квартирами для аренды, покупки, юридической консультации - жми на ссылку:
https://armonie-imobiliare.ro
НАШИ СОЦИАЛЬНЫЕ СЕТИ:
✅Instagram:
https://instagram.com/apartment_romania_mamaia
✅Facebook:
https://www.facebook.com/housingromania
✅Tik Tok:
https://www.tiktok.com/@_armonie_imobiliare_?_t=8riSC0AuV30&_r=1
✅Youtube:
https://www.youtube.com/@Armonie-Romania
НАШИ КАНАЛЫ:
✅Продажа: https://t.me/harmony_invest
✅Юридическая консультация:
Гражданство ЕС: https://t.me/armonie_consulting
Продление паспорта, (резерв +): https://t.me/armonie_consulting
Открытие фирмы в ЕС, ВНЖ, покупка земли в ЕС: https://t.me/armonie_consulting`

var dealLabels = map[session.DealType]string{
	session.DealRent: "Аренда",
	session.DealBuy:  "Продажа",
}

var homeLabels = map[session.HomeType]string{
	session.HomeApartment: "Квартира",
	session.HomeHouse:     "Дом",
	session.HomeVilla:     "Вилла",
}

func yesNo(v bool) string {
	if v {
		return "✅ Есть"
	}
	return "❌ Нет"
}

// Property renders the channel post for a finished property draft.
func Property(d *session.PropertyDraft) string {
	var b strings.Builder
	b.WriteString("🏠 НОВЫЙ ОБЪЕКТ НЕДВИЖИМОСТИ 🏠\n\n")
	fmt.Fprintf(&b, "📝 %s\n\n", d.Title)
	fmt.Fprintf(&b, "💰 Цена: %d €\n", d.Price)
	fmt.Fprintf(&b, "📌 Тип сделки: %s\n", label(dealLabels, d.DealType))
	fmt.Fprintf(&b, "🏡 Тип объекта: %s\n", label(homeLabels, d.HomeType))
	fmt.Fprintf(&b, "📍 Адрес: %s\n", d.Address)
	fmt.Fprintf(&b, "🏘️ Район: %s\n", d.District)
	fmt.Fprintf(&b, "📏 Площадь: %d м²\n", d.AreaSqm)
	fmt.Fprintf(&b, "🛏️ Комнат: %d\n", d.Rooms)
	fmt.Fprintf(&b, "🏢 Этаж: %d\n", d.Floor)
	fmt.Fprintf(&b, "🚪 Санузлов: %d\n", d.Bathrooms)
	fmt.Fprintf(&b, "🛗 Лифт: %s\n", yesNo(d.HasLift))
	fmt.Fprintf(&b, "🌅 Балкон: %s\n", yesNo(d.HasBalcony))

	if d.Nearby != "" {
		fmt.Fprintf(&b, "📍 Рядом: %s\n", d.Nearby)
	}
	if d.Availability != "" {
		fmt.Fprintf(&b, "📅 Дата сдачи: %s\n", d.Availability)
	}
	if d.Description != "" {
		fmt.Fprintf(&b, "\n📋 Описание: %s\n", clip(d.Description, maxDescription))
	}

	b.WriteString("\n")
	b.WriteString(contactFooter)
	return b.String()
}

// News renders the channel post for a finished news draft.
func News(d *session.NewsDraft) string {
	var b strings.Builder
	b.WriteString("📰 НОВАЯ НОВОСТЬ 📰\n\n")
	fmt.Fprintf(&b, "📝 %s\n\n", d.Title)
	fmt.Fprintf(&b, "📖 %s\n\n", clip(d.Body, maxNewsBody))
	b.WriteString(contactFooter)
	return b.String()
}

func label[K comparable](m map[K]string, k K) string {
	if v, ok := m[k]; ok {
		return v
	}
	return fmt.Sprint(k)
}

func clip(s string, maxRunes int) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[:maxRunes]) + "..."
}
