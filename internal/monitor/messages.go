package monitor

import (
	"fmt"

	"github.com/rideline/ridewatch/internal/ride"
)

// Operator-facing notice texts. These are the product surface of the relay
// and are kept byte-for-byte compatible with the messages operators already
// know, including the emoji markers.

func msgStatusUpdated(id, rawStatus string, r ride.Request) string {
	return fmt.Sprintf("🔄 Status atualizado da solicitação %s:\n%s\n\nOrigem: %s\nDestino: %s",
		id, rawStatus, r.OriginText(), r.DestinationText())
}

func msgRideAccepted(id string, snap ride.StageSnapshot, r ride.Request) string {
	driver := snap.DriverName
	if driver == "" {
		driver = "não informado"
	}
	vehicle := snap.Vehicle
	if vehicle == "" {
		vehicle = "não informado"
	}
	if snap.Color != "" {
		vehicle += " (" + snap.Color + ")"
	}
	plate := snap.Plate
	if plate == "" {
		plate = "não informada"
	}
	return fmt.Sprintf("✅ CORRIDA ACEITA\n\nSolicitação: %s\nStatus: %s\n\nMotorista: %s\nCarro: %s\nPlaca: %s\n\nOrigem: %s\nDestino: %s\n\nSe precisar, toque no botão abaixo para cancelar ESSA solicitação, enquanto a viagem ainda não estiver em andamento.",
		id, snap.RawStatus, driver, vehicle, plate, r.OriginText(), r.DestinationText())
}

func msgNextTrip(id, driver, otherID string, r ride.Request) string {
	return fmt.Sprintf("⏱ Atenção: o motorista %s já está em outra viagem EM ANDAMENTO (Solicitação %s).\n\nEssa nova corrida (Solicitação %s) ficará como PRÓXIMA viagem dele.\n\nOrigem: %s\nDestino: %s",
		driver, otherID, id, r.OriginText(), r.DestinationText())
}

func msgInProgress(id string, snap ride.StageSnapshot, r ride.Request) string {
	eta := ""
	if snap.DestinationETA != "" {
		eta = "Previsão de chegada ao destino: " + snap.DestinationETA + "\n\n"
	}
	return fmt.Sprintf("🚗 A viagem da solicitação %s está EM VIAGEM.\n%sOrigem: %s\nDestino: %s",
		id, eta, r.OriginText(), r.DestinationText())
}

func msgNoDriverRetrying(id, rawStatus string, r ride.Request) string {
	return fmt.Sprintf("⚠️ Nenhum motorista foi encontrado para a solicitação %s.\nStatus: %s\n\nOrigem: %s\nDestino: %s\n\nVou tentar criar automaticamente uma nova solicitação para essa mesma corrida.",
		id, rawStatus, r.OriginText(), r.DestinationText())
}

func msgNewRequestCreated(newID string, r ride.Request) string {
	return fmt.Sprintf("🔁 Nova solicitação criada automaticamente: %s\n\nOrigem: %s\nDestino: %s\n\nVou te avisar se algum motorista aceitar ou se, novamente, não houver motoristas disponíveis.",
		newID, r.OriginText(), r.DestinationText())
}

func msgRetryCreationFailed(reason string) string {
	return fmt.Sprintf("⚠️ Tentei criar uma nova solicitação automaticamente, mas deu erro:\n%s\n\nVerifique no painel se deseja criar manualmente.",
		reason)
}

func msgNoDriverAgain(id, rawStatus string, r ride.Request) string {
	return fmt.Sprintf("⚠️ Nenhum motorista foi encontrado novamente para a solicitação %s.\nStatus: %s\n\nOrigem: %s\nDestino: %s\n\nVerifique no painel se deseja tentar mais uma vez ou encaminhar de outra forma.",
		id, rawStatus, r.OriginText(), r.DestinationText())
}

func msgDriverCanceled(id string, snap ride.StageSnapshot, r ride.Request) string {
	driver := snap.DriverName
	if driver == "" {
		driver = "O motorista"
	}
	return fmt.Sprintf("🚨🚨🚨🚨%s cancelou a corrida 🚨🚨🚨🚨\n\nSolicitação: %s\nStatus: %s\n\nOrigem: %s\nDestino: %s\n\nVou continuar monitorando. Se outro motorista aceitar, te aviso.",
		driver, id, snap.RawStatus, r.OriginText(), r.DestinationText())
}

func msgCanceled(id, rawStatus string, r ride.Request) string {
	return fmt.Sprintf("ℹ️ Solicitação %s foi cancelada.\nMotivo: %s\n\nOrigem: %s\nDestino: %s",
		id, rawStatus, r.OriginText(), r.DestinationText())
}

func msgOverdue(id, rawStatus string, minutes int, r ride.Request) string {
	if rawStatus == "" {
		rawStatus = "indisponível"
	}
	return fmt.Sprintf("⏱ Atenção: a viagem da solicitação %s está em andamento há mais de %d minutos desde que o motorista aceitou.\nStatus atual: %s\n\nOrigem: %s\nDestino: %s\n\nVerifique no painel se está tudo bem com o motorista e o cliente.",
		id, minutes, rawStatus, r.OriginText(), r.DestinationText())
}

func msgFinished(id, rawStatus string, r ride.Request) string {
	if rawStatus == "" {
		rawStatus = "viagem finalizada"
	}
	return fmt.Sprintf("✅ Viagem da solicitação %s foi finalizada.\nStatus final: %s\n\nOrigem: %s\nDestino: %s",
		id, rawStatus, r.OriginText(), r.DestinationText())
}

func msgMonitoringEnded(id string, maxMinutes int) string {
	return fmt.Sprintf("ℹ️ Encerrado o monitoramento automático da solicitação %s após aproximadamente %d minutos.\nVerifique o painel para mais detalhes.",
		id, maxMinutes)
}
