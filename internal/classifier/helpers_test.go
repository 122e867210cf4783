package classifier_test

import "mealmail/internal/domain"

func emailOf(subject, body, sender string) domain.RawEmail {
	return domain.RawEmail{Subject: subject, Body: body, Sender: sender}
}
