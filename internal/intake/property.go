package intake

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"estatebot/internal/confirm"
	"estatebot/internal/session"
)

var propertySteps = map[session.Step]stepHandler{
	session.StepType:         (*Flow).stepType,
	session.StepTitle:        (*Flow).stepTitle,
	session.StepPrice:        (*Flow).stepPrice,
	session.StepAddress:      (*Flow).stepAddress,
	session.StepDistrict:     (*Flow).stepDistrict,
	session.StepFloor:        (*Flow).stepFloor,
	session.StepRooms:        (*Flow).stepRooms,
	session.StepLift:         (*Flow).stepLift,
	session.StepBalcony:      (*Flow).stepBalcony,
	session.StepBathroom:     (*Flow).stepBathroom,
	session.StepHomeType:     (*Flow).stepHomeType,
	session.StepNearby:       (*Flow).stepNearby,
	session.StepAvailability: (*Flow).stepAvailability,
	session.StepArea:         (*Flow).stepArea,
	session.StepDescription:  (*Flow).stepDescription,
	session.StepMainImage:    (*Flow).stepMainImageText,
	session.StepMoreImages:   (*Flow).stepMoreImagesText,
}

// StartProperty opens a fresh property intake, replacing any in-progress
// session for the chat.
func (f *Flow) StartProperty(ctx context.Context, chatID int64) {
	f.store.Set(chatID, &session.Session{
		Kind:     session.KindProperty,
		Step:     session.StepType,
		Property: &session.PropertyDraft{},
	})
	f.ask(ctx, chatID, "Выберите тип сделки:", [][]string{{"Аренда", "Покупка"}})
}

func (f *Flow) stepType(ctx context.Context, chatID int64, sess *session.Session, text string) {
	var deal session.DealType
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "аренда":
		deal = session.DealRent
	case "покупка":
		deal = session.DealBuy
	default:
		f.say(ctx, chatID, `Пожалуйста, выберите "Аренда" или "Покупка"`)
		return
	}
	sess.Property.DealType = deal
	sess.Step = session.StepTitle
	f.say(ctx, chatID, "Введите заголовок объекта:")
}

func (f *Flow) stepTitle(ctx context.Context, chatID int64, sess *session.Session, text string) {
	title := strings.TrimSpace(text)
	if title == "" {
		f.say(ctx, chatID, "Введите заголовок объекта:")
		return
	}
	sess.Property.Title = title
	sess.Step = session.StepPrice
	f.say(ctx, chatID, "Введите цену (только цифры):")
}

func (f *Flow) stepPrice(ctx context.Context, chatID int64, sess *session.Session, text string) {
	price, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || price < 0 {
		f.say(ctx, chatID, "Пожалуйста, введите корректную цену (только цифры):")
		return
	}
	sess.Property.Price = price
	sess.Step = session.StepAddress
	f.say(ctx, chatID, "Введите адрес объекта:")
}

func (f *Flow) stepAddress(ctx context.Context, chatID int64, sess *session.Session, text string) {
	addr := strings.TrimSpace(text)
	if addr == "" {
		f.say(ctx, chatID, "Введите адрес объекта:")
		return
	}
	sess.Property.Address = addr
	sess.Step = session.StepDistrict
	f.ask(ctx, chatID, "Выберите район:", districtRows())
}

func (f *Flow) stepDistrict(ctx context.Context, chatID int64, sess *session.Session, text string) {
	text = strings.TrimSpace(text)
	for _, d := range session.Districts {
		if text == d {
			sess.Property.District = d
			sess.Step = session.StepFloor
			f.say(ctx, chatID, "Введите этаж:")
			return
		}
	}
	f.ask(ctx, chatID, "Пожалуйста, выберите район из предложенных вариантов:", districtRows())
}

func (f *Flow) stepFloor(ctx context.Context, chatID int64, sess *session.Session, text string) {
	floor, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		f.say(ctx, chatID, "Пожалуйста, введите корректный этаж (только цифры):")
		return
	}
	sess.Property.Floor = floor
	sess.Step = session.StepRooms
	f.say(ctx, chatID, "Введите количество комнат:")
}

func (f *Flow) stepRooms(ctx context.Context, chatID int64, sess *session.Session, text string) {
	rooms, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		f.say(ctx, chatID, "Пожалуйста, введите корректное количество комнат (только цифры):")
		return
	}
	sess.Property.Rooms = rooms
	sess.Step = session.StepLift
	f.ask(ctx, chatID, "Есть ли лифт?", [][]string{{"Есть", "Нет"}})
}

func (f *Flow) stepLift(ctx context.Context, chatID int64, sess *session.Session, text string) {
	v, ok := parseYesNo(text)
	if !ok {
		f.say(ctx, chatID, `Пожалуйста, выберите "Есть" или "Нет"`)
		return
	}
	sess.Property.HasLift = v
	sess.Step = session.StepBalcony
	f.ask(ctx, chatID, "Есть ли балкон?", [][]string{{"Есть", "Нет"}})
}

func (f *Flow) stepBalcony(ctx context.Context, chatID int64, sess *session.Session, text string) {
	v, ok := parseYesNo(text)
	if !ok {
		f.say(ctx, chatID, `Пожалуйста, выберите "Есть" или "Нет"`)
		return
	}
	sess.Property.HasBalcony = v
	sess.Step = session.StepBathroom
	f.say(ctx, chatID, "Введите количество санузлов:")
}

func (f *Flow) stepBathroom(ctx context.Context, chatID int64, sess *session.Session, text string) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 1 {
		f.say(ctx, chatID, "Пожалуйста, введите корректное количество санузлов (минимум 1):")
		return
	}
	sess.Property.Bathrooms = n
	sess.Step = session.StepHomeType
	f.ask(ctx, chatID, "Выберите тип объекта:", [][]string{{"Квартира", "Дом"}, {"Вилла"}})
}

func (f *Flow) stepHomeType(ctx context.Context, chatID int64, sess *session.Session, text string) {
	var home session.HomeType
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "квартира":
		home = session.HomeApartment
	case "дом":
		home = session.HomeHouse
	case "вилла":
		home = session.HomeVilla
	default:
		f.say(ctx, chatID, `Пожалуйста, выберите "Квартира", "Дом" или "Вилла"`)
		return
	}
	sess.Property.HomeType = home
	sess.Step = session.StepNearby
	f.say(ctx, chatID, "Введите что находится рядом:")
}

func (f *Flow) stepNearby(ctx context.Context, chatID int64, sess *session.Session, text string) {
	sess.Property.Nearby = strings.TrimSpace(text)
	sess.Step = session.StepAvailability
	f.say(ctx, chatID, "Введите дату сдачи:")
}

func (f *Flow) stepAvailability(ctx context.Context, chatID int64, sess *session.Session, text string) {
	sess.Property.Availability = strings.TrimSpace(text)
	sess.Step = session.StepArea
	f.say(ctx, chatID, "Введите площадь квартиры:")
}

func (f *Flow) stepArea(ctx context.Context, chatID int64, sess *session.Session, text string) {
	area, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		f.say(ctx, chatID, "Пожалуйста, введите корректную площадь (только цифры):")
		return
	}
	sess.Property.AreaSqm = area
	sess.Step = session.StepDescription
	f.say(ctx, chatID, "Введите описание:")
}

func (f *Flow) stepDescription(ctx context.Context, chatID int64, sess *session.Session, text string) {
	sess.Property.Description = strings.TrimSpace(text)
	sess.Step = session.StepMainImage
	f.say(ctx, chatID, "Отправьте главное изображение объекта (одно фото).")
}

// Text during the photo steps does not advance anything; remind instead.

func (f *Flow) stepMainImageText(ctx context.Context, chatID int64, _ *session.Session, _ string) {
	f.say(ctx, chatID, "Отправьте главное изображение объекта (одно фото).")
}

func (f *Flow) stepMoreImagesText(ctx context.Context, chatID int64, _ *session.Session, _ string) {
	f.say(ctx, chatID, "Отправьте еще фото или введите /done для завершения.")
}

func (f *Flow) mainImageReceived(ctx context.Context, chatID int64, sess *session.Session, img session.ImageRef) {
	sess.Property.MainImage = img
	sess.Step = session.StepMoreImages
	f.say(ctx, chatID, "✅ Главное изображение получено!\n\nТеперь отправьте дополнительные изображения. Когда закончите, введите /done.")
}

func (f *Flow) additionalImageReceived(ctx context.Context, chatID int64, sess *session.Session, img session.ImageRef) {
	sess.Property.Additional = append(sess.Property.Additional, img)

	countMain := 0
	if !sess.Property.MainImage.Empty() {
		countMain = 1
	}
	countAdd := len(sess.Property.Additional)
	f.say(ctx, chatID, fmt.Sprintf(
		"✅ Дополнительное изображение добавлено!\n\n📊 Статистика фото:\n• Основные: %d\n• Дополнительные: %d\n• Всего: %d\n\nОтправьте еще фото или введите /done для завершения.",
		countMain, countAdd, countMain+countAdd))
}

// Done finishes the open-ended photo step: it validates the draft, hands
// it to the confirmation gate and drops the session. The main image is
// mandatory; without it no transition happens.
func (f *Flow) Done(ctx context.Context, chatID int64) {
	sess, ok := f.store.Get(chatID)
	if !ok || sess.Kind != session.KindProperty || sess.Step != session.StepMoreImages {
		f.say(ctx, chatID, "Нет активного процесса загрузки фото")
		return
	}
	if sess.Property.MainImage.Empty() {
		f.say(ctx, chatID, "Главное изображение обязательно. Пожалуйста, отправьте главное изображение.")
		return
	}

	draft := sess.Property
	f.store.Delete(chatID)
	f.gate.Ask(ctx, chatID, confirm.ActionCreateProperty, draft, fmt.Sprintf(
		"❓ Вы уверены, что хотите добавить новый объект?\n\nЗаголовок: %s\nЦена: %d €\n\n✅ Да - подтвердить добавление\n❌ Нет - отменить",
		draft.Title, draft.Price))
}

func districtRows() [][]string {
	return [][]string{
		{session.Districts[0], session.Districts[1]},
		{session.Districts[2], session.Districts[3]},
		{session.Districts[4]},
	}
}

func parseYesNo(text string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "есть":
		return true, true
	case "нет":
		return false, true
	default:
		return false, false
	}
}
